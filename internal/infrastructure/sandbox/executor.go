package sandbox

import (
	"context"
	"errors"
	"fmt"
	"go/parser"
	"go/token"
	"net/http"
	"path"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"quiz-agent/internal/application/port/output"
	"quiz-agent/internal/infrastructure/sandbox/quizkit"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

var _ output.CodeExecutor = (*YaegiExecutor)(nil)

var (
	ErrForbiddenImport = errors.New("forbidden import")
	ErrNoAnswerFunc    = errors.New("answer function not defined")
	ErrTimeout         = errors.New("execution timed out")
)

const (
	DefaultEntryPoint = "GetAnswer"
	defaultTimeout    = 60 * time.Second
	quizkitPath       = "quizkit"
)

// DefaultAllowedImports is the standard-library surface visible to
// generated code, in addition to quizkit. os, os/exec, syscall, unsafe and
// reflect stay out.
var DefaultAllowedImports = []string{
	"bytes",
	"encoding/csv",
	"encoding/json",
	"errors",
	"fmt",
	"io",
	"math",
	"net/http",
	"net/url",
	"regexp",
	"sort",
	"strconv",
	"strings",
	"time",
	"unicode",
}

type Config struct {
	Timeout        time.Duration
	EntryPoint     string
	AllowedImports []string
	// HTTPClient backs quizkit downloads; nil means a client with a 30s timeout.
	HTTPClient *http.Client
}

func DefaultConfig() Config {
	return Config{
		Timeout:        defaultTimeout,
		EntryPoint:     DefaultEntryPoint,
		AllowedImports: DefaultAllowedImports,
	}
}

// YaegiExecutor interprets model-written Go. Every call gets a new
// interpreter that can only see the allow-listed packages and quizkit.
type YaegiExecutor struct {
	cfg     Config
	allowed map[string]bool
	symbols interp.Exports
	logger  output.LoggerPort
}

func NewYaegiExecutor(cfg Config, logger output.LoggerPort) *YaegiExecutor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.EntryPoint == "" {
		cfg.EntryPoint = DefaultEntryPoint
	}
	if cfg.AllowedImports == nil {
		cfg.AllowedImports = DefaultAllowedImports
	}

	allowed := make(map[string]bool, len(cfg.AllowedImports))
	for _, pkg := range cfg.AllowedImports {
		allowed[pkg] = true
	}

	symbols := make(interp.Exports)
	for key, syms := range stdlib.Symbols {
		// keys look like "encoding/json/json"
		if allowed[path.Dir(key)] {
			symbols[key] = syms
		}
	}

	return &YaegiExecutor{
		cfg:     cfg,
		allowed: allowed,
		symbols: symbols,
		logger:  logger,
	}
}

// Imports lists what generated code may import, for the code prompt.
func (e *YaegiExecutor) Imports() []string {
	out := make([]string, 0, len(e.allowed)+1)
	for pkg := range e.allowed {
		out = append(out, pkg)
	}
	out = append(out, quizkitPath)
	sort.Strings(out)
	return out
}

func (e *YaegiExecutor) Execute(ctx context.Context, code string) (any, error) {
	src := wrapCode(code)
	pkgName, err := e.validateImports(src)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	e.logger.Debug("Executing generated code", "package", pkgName, "bytes", len(src), "timeout", e.cfg.Timeout)

	type outcome struct {
		value any
		err   error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("generated code panicked: %v", r)}
			}
		}()
		v, err := e.run(ctx, src, pkgName)
		done <- outcome{value: v, err: err}
	}()

	select {
	case out := <-done:
		return out.value, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s: %v", ErrTimeout, e.cfg.Timeout, ctx.Err())
	}
}

func (e *YaegiExecutor) run(ctx context.Context, src, pkgName string) (any, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(e.symbols); err != nil {
		return nil, fmt.Errorf("load stdlib symbols: %w", err)
	}
	if err := i.Use(kitSymbols(quizkit.New(ctx, e.kitOptions()...))); err != nil {
		return nil, fmt.Errorf("load quizkit symbols: %w", err)
	}

	if _, err := i.EvalWithContext(ctx, src); err != nil {
		return nil, fmt.Errorf("evaluate generated code: %w", err)
	}

	fn, err := i.EvalWithContext(ctx, pkgName+"."+e.cfg.EntryPoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNoAnswerFunc, e.cfg.EntryPoint, err)
	}
	return callAnswer(fn, e.cfg.EntryPoint)
}

func (e *YaegiExecutor) kitOptions() []quizkit.Option {
	if e.cfg.HTTPClient == nil {
		return nil
	}
	return []quizkit.Option{quizkit.WithHTTPClient(e.cfg.HTTPClient)}
}

// callAnswer accepts any zero-argument function. A trailing error result,
// if present and non-nil, is returned as the execution error.
func callAnswer(fn reflect.Value, name string) (any, error) {
	if fn.Kind() != reflect.Func {
		return nil, fmt.Errorf("%w: %s is %s, not a function", ErrNoAnswerFunc, name, fn.Kind())
	}
	if fn.Type().NumIn() != 0 {
		return nil, fmt.Errorf("%w: %s must take no arguments", ErrNoAnswerFunc, name)
	}

	out := fn.Call(nil)
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		return valueOf(out[0]), nil
	default:
		last := out[len(out)-1]
		if err, ok := valueOf(last).(error); ok && err != nil {
			return nil, fmt.Errorf("%s returned error: %w", name, err)
		}
		return valueOf(out[0]), nil
	}
}

func valueOf(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}
	switch v.Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

// validateImports rejects anything outside the allow-list and returns the
// declared package name.
func (e *YaegiExecutor) validateImports(src string) (string, error) {
	file, err := parser.ParseFile(token.NewFileSet(), "answer.go", src, parser.ImportsOnly)
	if err != nil {
		return "", fmt.Errorf("parse generated code: %w", err)
	}

	var forbidden []string
	for _, imp := range file.Imports {
		pkg, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			return "", fmt.Errorf("parse import %s: %w", imp.Path.Value, err)
		}
		if pkg != quizkitPath && !e.allowed[pkg] {
			forbidden = append(forbidden, pkg)
		}
	}
	if len(forbidden) > 0 {
		return "", fmt.Errorf("%w: %s", ErrForbiddenImport, strings.Join(forbidden, ", "))
	}
	return file.Name.Name, nil
}

var packageClause = regexp.MustCompile(`(?m)^\s*package\s+\w+`)

func wrapCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if packageClause.MatchString(trimmed) {
		return trimmed
	}
	return "package main\n\n" + trimmed
}

func kitSymbols(kit *quizkit.Kit) interp.Exports {
	return interp.Exports{
		quizkitPath + "/" + quizkitPath: {
			"Get":         reflect.ValueOf(kit.Get),
			"GetBytes":    reflect.ValueOf(kit.GetBytes),
			"ReadCSV":     reflect.ValueOf(quizkit.ReadCSV),
			"Floats":      reflect.ValueOf(quizkit.Floats),
			"Sum":         reflect.ValueOf(quizkit.Sum),
			"Mean":        reflect.ValueOf(quizkit.Mean),
			"Median":      reflect.ValueOf(quizkit.Median),
			"Min":         reflect.ValueOf(quizkit.Min),
			"Max":         reflect.ValueOf(quizkit.Max),
			"StdDev":      reflect.ValueOf(quizkit.StdDev),
			"Quantile":    reflect.ValueOf(quizkit.Quantile),
			"Correlation": reflect.ValueOf(quizkit.Correlation),
			"PDFText":     reflect.ValueOf(quizkit.PDFText),
			"Select":      reflect.ValueOf(quizkit.Select),
			"Tables":      reflect.ValueOf(quizkit.Tables),
			"Table":       reflect.ValueOf((*quizkit.Table)(nil)),
		},
	}
}
