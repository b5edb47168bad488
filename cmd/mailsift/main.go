// CLAUDE:SUMMARY CLI entry point: process files or mailboxes into manifests, inspect the store.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/emersion/go-mbox"

	"github.com/hazyhaar/mailsift/manifest"
	"github.com/hazyhaar/mailsift/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	switch os.Args[1] {
	case "process":
		cmdProcess(os.Args[2:])
	case "show":
		cmdShow(os.Args[2:])
	case "list":
		cmdList(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `mailsift — extract, validate and chunk document content

usage:
  mailsift process <file|dir|mailbox.mbox> [config.yaml]
  mailsift show    <document_id>
  mailsift list

process  Runs each input document through the pipeline, stores the
         manifests and writes extracted components to disk.
show     Prints one stored manifest as JSON.
list     Summarizes stored manifests.

environment:
  MAILSIFT_DB   manifest store path   (default mailsift.db)
  MAILSIFT_OUT  component output dir  (default components)
`)
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func cmdProcess(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "process requires an input path")
		os.Exit(1)
	}

	cfg := pipeline.DefaultConfig()
	if len(args) >= 2 {
		loaded, err := pipeline.LoadConfig(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		os.Exit(1)
	}

	docs, labels, err := collectInputs(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		fmt.Fprintln(os.Stderr, "no documents found")
		os.Exit(1)
	}

	store, err := manifest.OpenStore(env("MAILSIFT_DB", "mailsift.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	outDir := env("MAILSIFT_OUT", "components")

	results := p.ProcessBatch(context.Background(), docs)

	processed, failed := 0, 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: %v\n", labels[r.Index], r.Err)
			continue
		}
		m := r.Manifest
		if err := store.Save(m); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: save: %v\n", labels[r.Index], err)
			continue
		}
		if err := manifest.WriteComponents(filepath.Join(outDir, m.DocumentID), m); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  %s: write components: %v\n", labels[r.Index], err)
			continue
		}
		processed++
		fmt.Fprintf(os.Stderr, "  %s: %s  components=%d chunks=%d failures=%d\n",
			labels[r.Index], m.DocumentID, m.Stats.Components, m.Stats.Chunks, m.Stats.Failures)
	}
	fmt.Fprintf(os.Stderr, "done: %d processed, %d failed\n", processed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

// collectInputs expands the input path into raw documents: a directory
// becomes one document per regular file, an mbox becomes one per message,
// anything else is a single document.
func collectInputs(path string) ([][]byte, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, err
	}

	if info.IsDir() {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, nil, err
		}
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
		var docs [][]byte
		var labels []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			data, err := os.ReadFile(filepath.Join(path, e.Name()))
			if err != nil {
				return nil, nil, err
			}
			docs = append(docs, data)
			labels = append(labels, e.Name())
		}
		return docs, labels, nil
	}

	if strings.EqualFold(filepath.Ext(path), ".mbox") {
		return readMbox(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return [][]byte{data}, []string{filepath.Base(path)}, nil
}

func readMbox(path string) ([][]byte, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	var docs [][]byte
	var labels []string
	r := mbox.NewReader(f)
	for i := 0; ; i++ {
		msg, err := r.NextMessage()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("mbox message %d: %w", i+1, err)
		}
		data, err := io.ReadAll(msg)
		if err != nil {
			return nil, nil, fmt.Errorf("mbox message %d: %w", i+1, err)
		}
		docs = append(docs, data)
		labels = append(labels, fmt.Sprintf("%s#%d", filepath.Base(path), i+1))
	}
	return docs, labels, nil
}

func cmdShow(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "show requires a document id")
		os.Exit(1)
	}

	store, err := manifest.OpenStore(env("MAILSIFT_DB", "mailsift.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	m, err := store.Get(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "get: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "no manifest for %s\n", args[0])
		os.Exit(1)
	}
	data, err := m.JSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marshal: %v\n", err)
		os.Exit(1)
	}
	os.Stdout.Write(append(data, '\n'))
}

func cmdList(_ []string) {
	store, err := manifest.OpenStore(env("MAILSIFT_DB", "mailsift.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	summaries, err := store.List(100)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list: %v\n", err)
		os.Exit(1)
	}
	for _, s := range summaries {
		fmt.Printf("%s\t%s\tcomponents=%d\tchunks=%d\tfailures=%d\n",
			s.DocumentID, s.Status, s.Components, s.Chunks, s.Failures)
	}

	counts, err := store.CountByStatus()
	if err != nil {
		fmt.Fprintf(os.Stderr, "count: %v\n", err)
		os.Exit(1)
	}
	if len(counts) > 0 {
		fmt.Fprintf(os.Stderr, "total: success=%d partial=%d\n",
			counts[manifest.StatusSuccess], counts[manifest.StatusPartial])
	}
}
