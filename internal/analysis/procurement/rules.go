package procurement

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/google/cel-go/cel"
	"gopkg.in/yaml.v3"
)

// RuleSpec is one operator-defined red-flag rule as written in the rules file.
type RuleSpec struct {
	ID          string   `yaml:"id"`
	Type        string   `yaml:"type"`
	Severity    Severity `yaml:"severity"`
	Description string   `yaml:"description"`
	Explanation string   `yaml:"explanation"`
	Expression  string   `yaml:"expression"`
}

type rulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

type compiledRule struct {
	spec RuleSpec
	prog cel.Program
}

// RuleSet holds compiled CEL rules evaluated against the `doc` variable. It is
// safe for concurrent use and may be reloaded while in use.
type RuleSet struct {
	env    *cel.Env
	logger *slog.Logger

	mu    sync.RWMutex
	rules []compiledRule
}

// NewRuleSet returns an empty rule set.
func NewRuleSet(logger *slog.Logger) (*RuleSet, error) {
	env, err := cel.NewEnv(cel.Variable("doc", cel.DynType))
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RuleSet{env: env, logger: logger}, nil
}

// LoadRuleSet reads and compiles the rules file at path.
func LoadRuleSet(path string, logger *slog.Logger) (*RuleSet, error) {
	rs, err := NewRuleSet(logger)
	if err != nil {
		return nil, err
	}
	if err := rs.LoadFile(path); err != nil {
		return nil, err
	}
	return rs, nil
}

// LoadFile replaces the rules with the contents of path. Rules that fail to
// compile are skipped and logged; the rest are installed.
func (rs *RuleSet) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}
	return rs.Load(data)
}

// Load parses YAML rule definitions and installs those that compile.
func (rs *RuleSet) Load(data []byte) error {
	var file rulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse rules: %w", err)
	}

	compiled := make([]compiledRule, 0, len(file.Rules))
	for _, spec := range file.Rules {
		prog, err := rs.compile(spec)
		if err != nil {
			rs.logger.Warn("rejected procurement rule", "rule", spec.ID, "error", err)
			continue
		}
		compiled = append(compiled, compiledRule{spec: spec, prog: prog})
	}

	rs.mu.Lock()
	rs.rules = compiled
	rs.mu.Unlock()

	rs.logger.Info("procurement rules loaded", "count", len(compiled), "rejected", len(file.Rules)-len(compiled))
	return nil
}

func (rs *RuleSet) compile(spec RuleSpec) (cel.Program, error) {
	if spec.ID == "" || spec.Type == "" {
		return nil, fmt.Errorf("rule needs an id and a type")
	}
	switch spec.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh:
	default:
		return nil, fmt.Errorf("unknown severity %q", spec.Severity)
	}

	ast, issues := rs.env.Compile(spec.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	prog, err := rs.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(1000000),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// Len returns the number of installed rules.
func (rs *RuleSet) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.rules)
}

// Evaluate returns a red flag for every rule whose expression is true for
// facts, in file order. Non-boolean results and evaluation errors count as
// no match.
func (rs *RuleSet) Evaluate(facts map[string]any) []RedFlag {
	rs.mu.RLock()
	rules := rs.rules
	rs.mu.RUnlock()

	var flags []RedFlag
	for _, r := range rules {
		out, _, err := r.prog.Eval(facts)
		if err != nil {
			rs.logger.Debug("procurement rule evaluation failed", "rule", r.spec.ID, "error", err)
			continue
		}
		if matched, ok := out.Value().(bool); ok && matched {
			flags = append(flags, RedFlag{
				Type:        r.spec.Type,
				Severity:    r.spec.Severity,
				Description: r.spec.Description,
				Explanation: r.spec.Explanation,
			})
		}
	}
	return flags
}

// Watch reloads the rules file whenever it is written or replaced, until ctx
// is cancelled. The parent directory is watched so editors that rename over
// the file are picked up.
func (rs *RuleSet) Watch(ctx context.Context, path string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch rules directory: %w", err)
	}

	target := filepath.Clean(path)
	go func() {
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || !ev.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				if err := rs.LoadFile(path); err != nil {
					rs.logger.Error("failed to reload procurement rules", "error", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				rs.logger.Error("rules watcher error", "error", err)
			}
		}
	}()
	return nil
}
