// Package callsite attributes an intercepted provider call to the host code
// that made it: file, line, function, and an inferred workflow label.
package callsite

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// Site is the attribution for a single intercepted call. It is recomputed
// per call and never persisted.
type Site struct {
	File     string
	Line     int
	Function string
	Workflow string
	Hash     string
}

// sentinel is returned when no host frame can be identified. Resolution
// must never fail outward.
var sentinel = Site{
	File:     "unknown",
	Line:     0,
	Function: "unknown",
	Workflow: "default-workflow",
}

// skipPrefixes lists function-name prefixes that belong to the
// instrumentation path itself rather than to the host application.
// Frame matching is approximate; an explicit workflow tag via WithWorkflow
// is always more reliable than stack inference.
var skipPrefixes = []string{
	"github.com/mynitor/mynitor-go/",
	"github.com/openai/openai-go",
	"github.com/anthropics/anthropic-sdk-go",
	"google.golang.org/genai",
	"net/http",
	"runtime.",
}

// Resolve walks the current call stack and returns the first frame that
// does not belong to the instrumentation path. When no such frame exists,
// or when inspection fails for any reason, the sentinel Site is returned.
func Resolve() (site Site) {
	defer func() {
		if r := recover(); r != nil {
			site = sentinel
		}
	}()

	pc := make([]uintptr, 64)
	n := runtime.Callers(2, pc)
	if n == 0 {
		return sentinel
	}

	frames := runtime.CallersFrames(pc[:n])
	for {
		frame, more := frames.Next()
		if frame.File != "" && !internalFrame(frame) && strings.ContainsAny(frame.File, `/\`) {
			return newSite(frame)
		}
		if !more {
			return sentinel
		}
	}
}

func internalFrame(frame runtime.Frame) bool {
	// Our own test files exercise Resolve directly and count as host code.
	if strings.HasSuffix(frame.File, "_test.go") {
		return false
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(frame.Function, prefix) {
			return true
		}
	}
	return false
}

func newSite(frame runtime.Frame) Site {
	function := shortFunction(frame.Function)
	sum := md5.Sum([]byte(fmt.Sprintf("%s:%d:%s", frame.File, frame.Line, function)))
	return Site{
		File:     frame.File,
		Line:     frame.Line,
		Function: function,
		Workflow: workflowLabel(frame.File),
		Hash:     hex.EncodeToString(sum[:])[:8],
	}
}

// shortFunction strips the package path from a fully qualified function
// name, e.g. "example.com/app/pipeline.(*Runner).Summarize" -> "Summarize".
func shortFunction(qualified string) string {
	if qualified == "" {
		return "anonymous"
	}
	name := qualified
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "anonymous"
	}
	return name
}

// workflowLabel derives the inferred workflow from the file base name only.
// Function names are not part of the label; they would make label
// cardinality unbounded on the dashboard.
func workflowLabel(file string) string {
	base := filepath.Base(file)
	if ext := filepath.Ext(base); ext != "" {
		base = strings.TrimSuffix(base, ext)
	}
	if base == "" || base == "." {
		return sentinel.Workflow
	}
	return base
}

type contextKey struct{}

// WithWorkflow tags a context with an explicit workflow name. The tag takes
// precedence over both the configured override and stack inference, and is
// the recommended way to attribute calls in bundled or generated code where
// stack inspection is unreliable.
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return context.WithValue(ctx, contextKey{}, workflow)
}

// WorkflowFromContext returns the workflow tag set by WithWorkflow, if any.
func WorkflowFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if w, ok := ctx.Value(contextKey{}).(string); ok {
		return w
	}
	return ""
}
