// Package codelines resolves file locations reported by a language
// server into the text of those lines.
package codelines

import (
	"context"
	"fmt"

	"rockerboo/lsp-client-manager/async"
	"rockerboo/lsp-client-manager/collections"
	"rockerboo/lsp-client-manager/contract"
	"rockerboo/lsp-client-manager/eventloop"
	"rockerboo/lsp-client-manager/logger"
	"rockerboo/lsp-client-manager/lsp"
	"rockerboo/lsp-client-manager/types"
	"rockerboo/lsp-client-manager/vfs"
)

// MaxConcurrentReads bounds the number of files read at once.
const MaxConcurrentReads = 8

// DocumentState is the part of a connection that knows which files are
// open with the server.
type DocumentState interface {
	GetDocInfo(fname string) *lsp.DocumentInfo
}

type fileContents struct {
	text string
	err  error
}

// GetCodeLines returns the text of the line at each location, in order.
// Lines of files open with the server come from the copy last sent to
// it, since that is what the server's line numbers refer to. Other
// local files are read through files while loop keeps running. Problems
// are described in the returned line. If ctx is done before all files
// are read, it returns false and no lines.
//
// It must be called on the goroutine that drains loop.
func GetCodeLines(
	ctx context.Context,
	loop *eventloop.Loop,
	locations []types.HostFileLine,
	state DocumentState,
	files vfs.Connections,
) ([]string, bool) {
	// Lines of open files are taken before the loop runs, since running
	// it may close them.
	ret := make([]string, len(locations))
	var unresolved []int
	toRead := make(map[string]struct{})
	for i, loc := range locations {
		switch {
		case !loc.Host.IsLocal():
			ret[i] = fmt.Sprintf("<Not local: %s>", types.DocumentName{Host: loc.Host, Filename: loc.Filename})

		case state.GetDocInfo(loc.Filename) != nil:
			ret[i] = state.GetDocInfo(loc.Filename).LastContentsCodeLine(loc.Line)

		default:
			unresolved = append(unresolved, i)
			toRead[loc.Filename] = struct{}{}
		}
	}

	contents, ok := readFiles(ctx, loop, collections.SortedKeys(toRead), files)
	if !ok {
		logger.Trace("GetCodeLines: canceled while reading files")
		return nil, false
	}

	for _, i := range unresolved {
		loc := locations[i]
		c := contents[loc.Filename]
		if c.err != nil {
			ret[i] = fmt.Sprintf("<Error: %v>", c.err)
		} else {
			ret[i] = lsp.LineOrRangeError(c.text, loc.Line, loc.Filename)
		}
	}

	contract.Ensure(len(ret) == len(locations), "one line per location")
	return ret, true
}

// readFiles reads local files concurrently and waits for them by
// running loop.
func readFiles(
	ctx context.Context,
	loop *eventloop.Loop,
	names []string,
	files vfs.Connections,
) (map[string]fileContents, bool) {
	if len(names) == 0 {
		return map[string]fileContents{}, true
	}

	var (
		done    bool
		results []async.KeyedResult[string, []byte]
		readErr error
	)
	go func() {
		r, err := async.MapWithKeys(ctx, MaxConcurrentReads, names,
			func(ctx context.Context, name string) ([]byte, error) {
				return files.ReadFile(ctx, types.LocalHost(), name)
			})
		loop.Post(func() {
			results, readErr, done = r, err, true
		})
	}()

	if err := loop.WaitUntil(ctx, func() bool { return done }); err != nil {
		return nil, false
	}
	if readErr != nil {
		return nil, false
	}

	ret := make(map[string]fileContents, len(results))
	for _, r := range results {
		ret[r.Key] = fileContents{text: string(r.Value), err: r.Error}
	}
	return ret, true
}
