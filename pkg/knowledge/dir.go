package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// DirRetriever serves knowledge from a directory of markdown files. Files
// are loaded into memory and re-loaded when the directory changes, so
// curriculum edits show up without a restart.
type DirRetriever struct {
	dir     string
	logger  *slog.Logger
	watcher *fsnotify.Watcher

	mu   sync.RWMutex
	docs []knowledgeDoc

	done chan struct{}
}

type knowledgeDoc struct {
	name  string
	text  string
	terms map[string]int
}

// NewDirRetriever loads every .md file under dir and starts watching for
// changes.
func NewDirRetriever(dir string, logger *slog.Logger) (*DirRetriever, error) {
	r := &DirRetriever{
		dir:    dir,
		logger: logger,
		done:   make(chan struct{}),
	}

	if err := r.reload(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}
	r.watcher = watcher

	go r.watch()

	logger.Info("knowledge directory loaded",
		"dir", dir,
		"documents", len(r.docs),
	)

	return r, nil
}

func (r *DirRetriever) watch() {
	for {
		select {
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := r.reload(); err != nil {
				r.logger.Warn("knowledge reload failed", "error", err)
				continue
			}
			r.logger.Debug("knowledge reloaded", "trigger", event.Name)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("knowledge watcher error", "error", err)
		case <-r.done:
			return
		}
	}
}

func (r *DirRetriever) reload() error {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("reading knowledge dir: %w", err)
	}

	var docs []knowledgeDoc
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			// A file may vanish between ReadDir and ReadFile during edits.
			r.logger.Warn("skipping knowledge file", "file", entry.Name(), "error", err)
			continue
		}

		text := string(data)
		docs = append(docs, knowledgeDoc{
			name:  entry.Name(),
			text:  text,
			terms: termCounts(text),
		})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].name < docs[j].name })

	r.mu.Lock()
	r.docs = docs
	r.mu.Unlock()

	return nil
}

// Retrieve scores each document by query-term overlap and returns the best
// matches concatenated, bounded to maxChars. Whole documents are included
// until the budget runs out.
func (r *DirRetriever) Retrieve(_ context.Context, query string, maxChars int) (string, error) {
	queryTerms := termCounts(query)
	if len(queryTerms) == 0 {
		return "", nil
	}

	r.mu.RLock()
	docs := r.docs
	r.mu.RUnlock()

	type scored struct {
		doc   knowledgeDoc
		score int
	}
	var matches []scored
	for _, doc := range docs {
		score := 0
		for term := range queryTerms {
			if _, ok := doc.terms[term]; ok {
				score++
			}
		}
		if score > 0 {
			matches = append(matches, scored{doc: doc, score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })

	var b strings.Builder
	for _, m := range matches {
		text := strings.TrimSpace(m.doc.text)
		if maxChars > 0 && b.Len()+len(text)+2 > maxChars {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	return b.String(), nil
}

// Close stops the directory watcher.
func (r *DirRetriever) Close() error {
	close(r.done)
	if r.watcher != nil {
		return r.watcher.Close()
	}
	return nil
}

// termCounts lowercases and tokenizes text into word counts, dropping
// single-character tokens.
func termCounts(text string) map[string]int {
	counts := make(map[string]int)
	for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	}) {
		if len(word) < 2 {
			continue
		}
		counts[word]++
	}
	return counts
}

var _ Retriever = (*DirRetriever)(nil)
