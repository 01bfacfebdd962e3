package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// ValidationErrors maps a field to the first failing rule's message.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validator evaluates catalog rules against form data. Compiled programs are
// cached per expression.
type Validator struct {
	catalog *Catalog

	mu       sync.Mutex
	programs map[string]*exprvm.Program
}

// NewValidator builds a validator over c.
func NewValidator(c *Catalog) *Validator {
	return &Validator{catalog: c, programs: make(map[string]*exprvm.Program)}
}

// Check compiles every rule in the catalog so broken expressions surface at startup.
func (v *Validator) Check() error {
	for _, f := range v.catalog.Forms {
		for _, r := range f.Rules {
			if r.When != "" {
				if _, err := v.program(r.When); err != nil {
					return fmt.Errorf("form %q field %q: %w", f.Type, r.Field, err)
				}
			}
			if _, err := v.program(r.Expr); err != nil {
				return fmt.Errorf("form %q field %q: %w", f.Type, r.Field, err)
			}
		}
	}
	return nil
}

// Validate runs formType's rules against data. It returns nil ValidationErrors
// when every rule holds; the error is reserved for unknown forms and broken rules.
func (v *Validator) Validate(formType string, data map[string]any) (ValidationErrors, error) {
	form, err := v.catalog.Form(formType)
	if err != nil {
		return nil, err
	}
	env := make(map[string]any, len(data)+1)
	for k, val := range data {
		env[k] = val
	}
	var out ValidationErrors
	for _, r := range form.Rules {
		if _, failed := out[r.Field]; failed {
			continue
		}
		if r.When != "" {
			ok, err := v.eval(r.When, env)
			if err != nil {
				return nil, fmt.Errorf("form %q field %q when: %w", formType, r.Field, err)
			}
			if !ok {
				continue
			}
		}
		ok, err := v.eval(r.Expr, env)
		if err != nil {
			return nil, fmt.Errorf("form %q field %q: %w", formType, r.Field, err)
		}
		if !ok {
			if out == nil {
				out = ValidationErrors{}
			}
			msg := r.Message
			if msg == "" {
				msg = "invalid"
			}
			out[r.Field] = msg
		}
	}
	return out, nil
}

func (v *Validator) eval(expression string, env map[string]any) (bool, error) {
	program, err := v.program(expression)
	if err != nil {
		return false, err
	}
	res, err := exprlang.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("run %q: %w", expression, err)
	}
	ok, isBool := res.(bool)
	if !isBool {
		return false, fmt.Errorf("rule %q returned %T, want bool", expression, res)
	}
	return ok, nil
}

func (v *Validator) program(expression string) (*exprvm.Program, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if p, ok := v.programs[expression]; ok {
		return p, nil
	}
	p, err := exprlang.Compile(expression,
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
		exprlang.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	v.programs[expression] = p
	return p, nil
}
