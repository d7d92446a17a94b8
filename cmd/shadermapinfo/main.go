// Command shadermapinfo prints the contents of a cooked shader map archive:
// the offset table, per-slot fingerprints and the compiled programs.
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/gogpu/shadermap"
	"github.com/gogpu/shadermap/archive"
)

func main() {
	var (
		path     = flag.String("archive", "", "archive file to inspect")
		programs = flag.Bool("programs", false, "list compiled programs per slot")
		verbose  = flag.Bool("v", false, "enable debug logging")
	)
	flag.Parse()

	if *path == "" {
		flag.Usage()
		os.Exit(2)
	}
	if *verbose {
		shadermap.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	f, err := os.Open(*path)
	if err != nil {
		log.Fatalf("open archive: %v", err)
	}
	defer f.Close()

	r, err := archive.NewReader(f)
	if err != nil {
		log.Fatalf("parse archive: %v", err)
	}

	slots := r.Slots()
	fmt.Printf("%s: %d slots\n", *path, len(slots))
	for _, slot := range slots {
		if !slot.Valid {
			fmt.Printf("  %-8s %-8s  <no artifact>\n", slot.Feature, slot.Quality)
			continue
		}
		sm, err := r.Extract(slot.Feature, slot.Quality)
		if err != nil {
			log.Fatalf("extract (%s, %s): %v", slot.Feature, slot.Quality, err)
		}
		printSlot(slot, sm, *programs)
		sm.Release()
	}
}

func printSlot(slot archive.Slot, sm *shadermap.ShaderMap, listPrograms bool) {
	id := sm.ID()
	fmt.Printf("  %-8s %-8s  %s  (%d bytes)\n",
		slot.Feature, slot.Quality, sm.Digest(), slot.Size)
	fmt.Printf("    platform=%s usage=%s deps=%d factories=%d pipelines=%d\n",
		sm.Platform(), id.Usage,
		len(id.ShaderDependencies), len(id.VertexFactories), len(id.Pipelines))
	if set := sm.Expressions(); !set.IsEmpty() {
		fmt.Printf("    expressions: %d vectors, %d scalars, %d textures, %d stacks (buffer %d bytes)\n",
			len(set.Vectors), len(set.Scalars), len(set.Textures), len(set.Stacks),
			set.BufferSize())
	}
	if !listPrograms {
		return
	}
	for _, p := range sm.Programs() {
		vf := p.Target.VertexFactory
		if vf == "" {
			vf = "-"
		}
		fmt.Printf("    %-24s perm=%-3d vf=%-16s %-8s %6d bytes\n",
			p.Target.ShaderType, p.Target.Permutation, vf,
			p.Target.Stage, len(p.Code))
	}
}
