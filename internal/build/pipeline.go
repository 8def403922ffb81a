// Package build wires the Ourocode phases into a compile pipeline: front
// end selection by language tag, lowering to IR, CFG validation and
// canonical hashing. A pipeline deduplicates concurrent identical compiles
// and caches results by source digest.
package build

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/ourocode-lang/ourocode/internal/ir"
	"github.com/ourocode-lang/ourocode/internal/parser"
	"github.com/ourocode-lang/ourocode/internal/sexpr"
)

// Supported source language tags.
const (
	LangAlgol = "algol" // imperative IF/THEN/ELSE syntax
	LangLisp  = "lisp"  // S-expression syntax
)

// UnknownLanguageError rejects a source language tag the pipeline does not
// recognize at all.
type UnknownLanguageError struct {
	Language string
}

func (e *UnknownLanguageError) Error() string {
	return fmt.Sprintf("unknown source language %q (supported: %s, %s)", e.Language, LangAlgol, LangLisp)
}

// NotImplementedError rejects a recognized tag whose front end has not
// shipped yet.
type NotImplementedError struct {
	Language string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("source language %q is recognized but not implemented", e.Language)
}

// ValidationFailure wraps the validator's error list as a single error.
type ValidationFailure struct {
	Errs []ir.ValidationError
}

func (e *ValidationFailure) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, v := range e.Errs {
		msgs[i] = v.Error()
	}
	return fmt.Sprintf("module failed validation: %s", strings.Join(msgs, "; "))
}

// CompiledRule is the pipeline output for one source program.
type CompiledRule struct {
	Module   *ir.Module
	Hash     string // lowercase hex SHA-256 of the canonical text
	Text     string // canonical IR text
	Language string
}

// Options override the lowered module header.
type Options struct {
	ModuleName string
	Version    string
}

// Pipeline compiles rule sources into validated, hashed modules.
type Pipeline struct {
	cache *ruleCache
	sf    singleflight.Group
}

// NewPipeline creates a pipeline with a compile cache of the given
// capacity (entries; <=0 uses a default).
func NewPipeline(cacheCapacity int) *Pipeline {
	return &Pipeline{cache: newRuleCache(cacheCapacity)}
}

// Compile runs source through the front end for the given language tag,
// lowers it, validates the CFG and computes the canonical hash. Identical
// (source, language, options) compiles hit the cache; concurrent identical
// compiles are coalesced.
func (p *Pipeline) Compile(source, language string, opts Options) (*CompiledRule, error) {
	key := cacheKey(source, language, opts)
	if r, ok := p.cache.Get(key); ok {
		return r, nil
	}
	v, err, _ := p.sf.Do(string(key), func() (interface{}, error) {
		r, err := CompileOnce(source, language, opts)
		if err != nil {
			return nil, err
		}
		p.cache.Put(key, r)
		return r, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompiledRule), nil
}

// Stats returns the compile cache metrics.
func (p *Pipeline) Stats() CacheStats { return p.cache.Stats() }

// CompileOnce compiles without caching. Useful for one-shot tools.
func CompileOnce(source, language string, opts Options) (*CompiledRule, error) {
	program, err := parseSource(source, language)
	if err != nil {
		return nil, err
	}
	module, err := ir.Lower(program, ir.LowerOptions{
		ModuleName: opts.ModuleName,
		Version:    opts.Version,
		Source:     language,
	})
	if err != nil {
		return nil, err
	}
	if verrs := ir.Validate(module); len(verrs) > 0 {
		return nil, &ValidationFailure{Errs: verrs}
	}
	text := ir.Encode(module)
	sum := sha256.Sum256([]byte(text))
	return &CompiledRule{
		Module:   module,
		Hash:     hex.EncodeToString(sum[:]),
		Text:     text,
		Language: language,
	}, nil
}

func parseSource(source, language string) (*parser.BlockStmt, error) {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case LangAlgol, "imperative":
		return parser.Parse(source)
	case LangLisp, "sexpr", "scheme":
		return sexpr.Parse(source)
	case "forth":
		// stack-machine front end is planned but has no parser yet
		return nil, &NotImplementedError{Language: language}
	default:
		return nil, &UnknownLanguageError{Language: language}
	}
}

func cacheKey(source, language string, opts Options) CacheKey {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%s", language, opts.ModuleName, opts.Version, source)
	return CacheKey(hex.EncodeToString(h.Sum(nil)))
}

// IsCompileError reports whether err came from the front end or lowering,
// as opposed to validation or infrastructure.
func IsCompileError(err error) bool {
	var ce *ir.CompileError
	var pe *parser.ParseError
	var se *sexpr.ParseError
	return errors.As(err, &ce) || errors.As(err, &pe) || errors.As(err, &se)
}
