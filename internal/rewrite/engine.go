package rewrite

import (
	"context"
	"fmt"
	"log/slog"
)

// Diagnostic levels sit below slog.LevelDebug so that -v N on the command
// line reveals them incrementally: level 1 shows final decisions, 2 adds
// passthrough outcomes, 3 the context/rule trace, 4 path fragments.
const (
	LevelDecision    = slog.LevelDebug
	LevelPassthrough = slog.Level(-8)
	LevelTrace       = slog.Level(-12)
	LevelFragments   = slog.Level(-16)
)

// VerbosityLevel converts a -v count to the minimum slog level enabling
// all diagnostics up to that verbosity.
func VerbosityLevel(v int) slog.Level {
	return slog.Level(-4 * v)
}

// CallerResolver maps a process id to its command line. Implementations
// return an empty string for processes they cannot inspect.
type CallerResolver interface {
	Cmdline(pid int) string
}

// DirCreator materializes missing parent directories of a resolved path
// under the requesting identity.
type DirCreator interface {
	MkdirParents(ctx context.Context, path string, uid, gid uint32) error
}

// Options configures an Engine beyond its root and ruleset.
type Options struct {
	// Caller resolves process command lines for caller-scoped contexts.
	// When nil every command line reads as empty, so only match-all
	// contexts apply.
	Caller CallerResolver

	// Creator, when set, is invoked after each rewrite. Passthrough
	// results never trigger it. Leave nil to disable autocreation.
	Creator DirCreator

	// Logger receives decision and trace diagnostics. Defaults to
	// slog.Default.
	Logger *slog.Logger
}

// Engine resolves virtual paths against an immutable ruleset. It is safe
// for concurrent use; nothing is mutated after construction.
type Engine struct {
	root    string
	rules   *Ruleset
	caller  CallerResolver
	creator DirCreator
	log     *slog.Logger
}

// NewEngine builds an engine serving the given backing root. root must
// already be canonicalized with any trailing slash stripped; rules may be
// nil for a pure passthrough engine.
func NewEngine(root string, rules *Ruleset, opts Options) *Engine {
	if rules == nil {
		rules = &Ruleset{}
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		root:    root,
		rules:   rules,
		caller:  opts.Caller,
		creator: opts.Creator,
		log:     log,
	}
}

// Root returns the backing root the engine resolves into.
func (e *Engine) Root() string { return e.root }

// Resolve maps one request to the real path that should serve it.
// Contexts are scanned in declaration order; a caller-scoped context
// whose pattern does not match the requesting command line is skipped
// whole. Within an entered context the first matching rule wins and ends
// the scan globally; a context entered without any rule match falls
// through to later contexts. With no winning rule the path maps into the
// root verbatim.
//
// The only error condition is a winning rule whose template references a
// capture its pattern did not produce.
func (e *Engine) Resolve(ctx context.Context, req Request) (string, error) {
	e.log.LogAttrs(ctx, LevelTrace, "resolving", slog.String("path", req.Path))

	var (
		cmdline     string
		haveCmdline bool
	)
	for ci := range e.rules.Contexts {
		rc := &e.rules.Contexts[ci]
		if rc.Caller != nil {
			if !haveCmdline {
				cmdline = e.cmdline(req.PID)
				haveCmdline = true
			}
			pairs, err := rc.Caller.Match(cmdline, 0)
			if err != nil {
				e.log.LogAttrs(ctx, slog.LevelWarn, "caller pattern failed",
					slog.String("pattern", rc.Caller.Raw), slog.Any("error", err))
			}
			if pairs == nil {
				e.log.LogAttrs(ctx, LevelTrace, "context skipped",
					slog.String("caller", rc.Caller.Raw))
				continue
			}
			e.log.LogAttrs(ctx, LevelTrace, "context entered",
				slog.String("caller", rc.Caller.Raw))
		} else {
			e.log.LogAttrs(ctx, LevelTrace, "context entered", slog.String("caller", "default"))
		}

		for ri := range rc.Rules {
			rule := &rc.Rules[ri]
			pairs, err := rule.Pattern.Match(req.Path, 1)
			if err != nil {
				e.log.LogAttrs(ctx, slog.LevelWarn, "path pattern failed",
					slog.String("pattern", rule.Pattern.Raw), slog.Any("error", err))
			}
			if pairs == nil {
				e.log.LogAttrs(ctx, LevelTrace, "rule did not match",
					slog.String("pattern", rule.Pattern.Raw))
				continue
			}
			e.log.LogAttrs(ctx, LevelTrace, "rule matched",
				slog.String("pattern", rule.Pattern.Raw),
				slog.String("template", templateLabel(rule)))
			return e.apply(ctx, req, rule, pairs)
		}
	}
	return e.apply(ctx, req, nil, nil)
}

// apply builds the result path for the winning rule, or the passthrough
// result when rule is nil.
func (e *Engine) apply(ctx context.Context, req Request, rule *Rule, pairs []int) (string, error) {
	if rule == nil || rule.Passthrough {
		out := e.root + req.Path
		e.log.LogAttrs(ctx, LevelPassthrough, "passthrough",
			slog.String("path", req.Path), slog.String("resolved", out))
		return out, nil
	}

	expanded, err := expandTemplate(rule.Template, req.Path, pairs)
	if err != nil {
		return "", fmt.Errorf("rule %q template %q: %w", rule.Pattern.Raw, rule.Template, err)
	}

	e.log.LogAttrs(ctx, LevelFragments, "rewrite fragments",
		slog.String("root", e.root),
		slog.String("prefix", req.Path[:pairs[0]]),
		slog.String("expanded", expanded),
		slog.String("suffix", req.Path[pairs[1]:]))

	out := e.root + req.Path[:pairs[0]] + expanded + req.Path[pairs[1]:]

	if e.creator != nil {
		if err := e.creator.MkdirParents(ctx, out, req.UID, req.GID); err != nil {
			e.log.LogAttrs(ctx, slog.LevelWarn, "autocreating parent directories failed",
				slog.String("path", req.Path), slog.String("resolved", out),
				slog.Any("error", err))
		}
	}

	e.log.LogAttrs(ctx, LevelDecision, "rewrite",
		slog.String("path", req.Path), slog.String("resolved", out))
	return out, nil
}

func (e *Engine) cmdline(pid int) string {
	if e.caller == nil {
		return ""
	}
	return e.caller.Cmdline(pid)
}

func templateLabel(r *Rule) string {
	if r.Passthrough {
		return "(don't rewrite)"
	}
	return r.Template
}
