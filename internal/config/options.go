package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/funvibe/diffsmith/internal/rng"
)

// ErrInvalidOptions is wrapped by every validation failure.
var ErrInvalidOptions = errors.New("invalid options")

// StatementWeights weights the statement kinds of a block.
type StatementWeights struct {
	Block      float64 `yaml:"block"`
	Assignment float64 `yaml:"assignment"`
	Call       float64 `yaml:"call"`
	If         float64 `yaml:"if"`
	Return     float64 `yaml:"return"`
	TryFinally float64 `yaml:"try_finally"`
	Loop       float64 `yaml:"loop"`
}

// ExpressionWeights weights the expression kinds.
type ExpressionWeights struct {
	MemberAccess float64 `yaml:"member_access"`
	Literal      float64 `yaml:"literal"`
	Unary        float64 `yaml:"unary"`
	Binary       float64 `yaml:"binary"`
	Call         float64 `yaml:"call"`
	Increment    float64 `yaml:"increment"`
	Decrement    float64 `yaml:"decrement"`
}

// LiteralWeights weights the styles of primitive constants.
type LiteralWeights struct {
	Zero     float64 `yaml:"zero"`
	One      float64 `yaml:"one"`
	MinusOne float64 `yaml:"minus_one"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	Small    float64 `yaml:"small"`
	Random   float64 `yaml:"random"`
}

// Options holds every tunable of program synthesis. It is immutable once
// generation starts.
type Options struct {
	// Type synthesis
	AggregateTypeCount     rng.Geometric `yaml:"aggregate_type_count"`
	InterfaceTypeCount     rng.Geometric `yaml:"interface_type_count"`
	AggregateFieldCount    rng.Uniform   `yaml:"aggregate_field_count"`
	ClassProb              float64       `yaml:"class_prob"`
	PrimitiveFieldProb     float64       `yaml:"primitive_field_prob"`
	ImplementInterfaceProb float64       `yaml:"implement_interface_prob"`
	ArrayTypeProb          float64       `yaml:"array_type_prob"`
	ArrayRank              rng.Uniform   `yaml:"array_rank"`
	JaggedArrayProb        float64       `yaml:"jagged_array_prob"`
	MaxJaggedDepth         int           `yaml:"max_jagged_depth"`
	ArrayDimension         rng.Uniform   `yaml:"array_dimension"`
	MaxArrayElements       int           `yaml:"max_array_elements"`
	ArrayShapeRetries      int           `yaml:"array_shape_retries"`
	InterfaceLocalProb     float64       `yaml:"interface_local_prob"`
	VectorTypeProb         float64       `yaml:"vector_type_prob"`

	// Functions and the call graph
	MaxFunctions        int           `yaml:"max_functions"`
	MaxTransitiveCalls  int64         `yaml:"max_transitive_calls"`
	NewFunctionProb     float64       `yaml:"new_function_prob"`
	InterfaceMethodProb float64       `yaml:"interface_method_prob"`
	ParameterCount      rng.Geometric `yaml:"parameter_count"`
	ByRefParameterProb  float64       `yaml:"by_ref_parameter_prob"`
	RefReturnCallProb   float64       `yaml:"ref_return_call_prob"`

	// Statements
	BlockStatementCount    rng.Geometric    `yaml:"block_statement_count"`
	Statements             StatementWeights `yaml:"statements"`
	StatementNestingDecay  float64          `yaml:"statement_nesting_decay"`
	ElseProb               float64          `yaml:"else_prob"`
	LoopIterations         rng.Uniform      `yaml:"loop_iterations"`
	NewLocalProb           float64          `yaml:"new_local_prob"`
	NewStaticProb          float64          `yaml:"new_static_prob"`
	RefLocalProb           float64          `yaml:"ref_local_prob"`
	CompoundAssignmentProb float64          `yaml:"compound_assignment_prob"`
	UnsafeReadProb         float64          `yaml:"unsafe_read_prob"`

	// Expressions
	Expressions            ExpressionWeights  `yaml:"expressions"`
	ExpressionNestingDecay float64            `yaml:"expression_nesting_decay"`
	BinaryOperators        map[string]float64 `yaml:"binary_operators"`
	Literals               LiteralWeights     `yaml:"literals"`

	// Features, normally switched on by seed tags.
	Vectors bool `yaml:"vectors"`
	Unsafe  bool `yaml:"unsafe"`
}

// Defaults returns the stock generation profile.
func Defaults() Options {
	return Options{
		AggregateTypeCount:     rng.Geometric{P: 0.3, Min: 0, Max: 8},
		InterfaceTypeCount:     rng.Geometric{P: 0.5, Min: 0, Max: 4},
		AggregateFieldCount:    rng.Uniform{Min: 1, Max: 5},
		ClassProb:              0.4,
		PrimitiveFieldProb:     0.75,
		ImplementInterfaceProb: 0.5,
		ArrayTypeProb:          0.1,
		ArrayRank:              rng.Uniform{Min: 1, Max: 2},
		JaggedArrayProb:        0.25,
		MaxJaggedDepth:         3,
		ArrayDimension:         rng.Uniform{Min: 1, Max: 3},
		MaxArrayElements:       16,
		ArrayShapeRetries:      8,
		InterfaceLocalProb:     0.05,
		VectorTypeProb:         0.15,

		MaxFunctions:        24,
		MaxTransitiveCalls:  40,
		NewFunctionProb:     0.15,
		InterfaceMethodProb: 0.25,
		ParameterCount:      rng.Geometric{P: 0.4, Min: 0, Max: 6},
		ByRefParameterProb:  0.2,
		RefReturnCallProb:   0.1,

		BlockStatementCount: rng.Geometric{P: 0.3, Min: 1, Max: 12},
		Statements: StatementWeights{
			Block:      0.5,
			Assignment: 10,
			Call:       2,
			If:         2,
			Return:     0.5,
			TryFinally: 0.5,
			Loop:       0.8,
		},
		StatementNestingDecay:  0.45,
		ElseProb:               0.5,
		LoopIterations:         rng.Uniform{Min: 1, Max: 3},
		NewLocalProb:           0.3,
		NewStaticProb:          0.05,
		RefLocalProb:           0.1,
		CompoundAssignmentProb: 0.4,
		UnsafeReadProb:         0.15,

		Expressions: ExpressionWeights{
			MemberAccess: 6,
			Literal:      4,
			Unary:        1,
			Binary:       4,
			Call:         1,
			Increment:    0.3,
			Decrement:    0.3,
		},
		ExpressionNestingDecay: 0.5,
		BinaryOperators: map[string]float64{
			"add": 1, "sub": 1, "mul": 1, "div": 0.5, "mod": 0.5,
			"and": 1, "or": 1, "xor": 1, "shl": 0.5, "shr": 0.5,
			"eq": 1, "ne": 1, "lt": 1, "le": 1, "gt": 1, "ge": 1,
			"land": 1, "lor": 1,
		},
		Literals: LiteralWeights{
			Zero:     2,
			One:      2,
			MinusOne: 1,
			Min:      1,
			Max:      1,
			Small:    4,
			Random:   3,
		},
	}
}

// Load reads a YAML profile. Keys missing from the file keep their
// default values.
func Load(path string) (Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Options{}, fmt.Errorf("reading options %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes a YAML profile over the defaults and validates it.
// The path argument is used only for error messages.
func Parse(data []byte, path string) (Options, error) {
	opts := Defaults()
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return Options{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := opts.Validate(); err != nil {
		return Options{}, fmt.Errorf("%s: %w", path, err)
	}
	return opts, nil
}

// Save writes opts as YAML.
func Save(path string, opts Options) error {
	data, err := yaml.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing options %s: %w", path, err)
	}
	return nil
}

// Validate checks that every probability, weight and bound is usable.
func (o *Options) Validate() error {
	probs := []struct {
		name string
		v    float64
	}{
		{"class_prob", o.ClassProb},
		{"primitive_field_prob", o.PrimitiveFieldProb},
		{"implement_interface_prob", o.ImplementInterfaceProb},
		{"array_type_prob", o.ArrayTypeProb},
		{"jagged_array_prob", o.JaggedArrayProb},
		{"interface_local_prob", o.InterfaceLocalProb},
		{"vector_type_prob", o.VectorTypeProb},
		{"new_function_prob", o.NewFunctionProb},
		{"interface_method_prob", o.InterfaceMethodProb},
		{"by_ref_parameter_prob", o.ByRefParameterProb},
		{"ref_return_call_prob", o.RefReturnCallProb},
		{"else_prob", o.ElseProb},
		{"new_local_prob", o.NewLocalProb},
		{"new_static_prob", o.NewStaticProb},
		{"ref_local_prob", o.RefLocalProb},
		{"compound_assignment_prob", o.CompoundAssignmentProb},
		{"unsafe_read_prob", o.UnsafeReadProb},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			return fmt.Errorf("%w: %s must be in [0, 1], got %v", ErrInvalidOptions, p.name, p.v)
		}
	}
	for _, d := range []struct {
		name string
		v    float64
	}{
		{"statement_nesting_decay", o.StatementNestingDecay},
		{"expression_nesting_decay", o.ExpressionNestingDecay},
	} {
		if d.v <= 0 || d.v > 1 {
			return fmt.Errorf("%w: %s must be in (0, 1], got %v", ErrInvalidOptions, d.name, d.v)
		}
	}
	for _, g := range []struct {
		name string
		v    rng.Geometric
	}{
		{"aggregate_type_count", o.AggregateTypeCount},
		{"interface_type_count", o.InterfaceTypeCount},
		{"parameter_count", o.ParameterCount},
		{"block_statement_count", o.BlockStatementCount},
	} {
		if g.v.P <= 0 || g.v.P > 1 || g.v.Min < 0 {
			return fmt.Errorf("%w: %s needs p in (0, 1] and min >= 0", ErrInvalidOptions, g.name)
		}
	}
	for _, u := range []struct {
		name string
		v    rng.Uniform
		min  int
	}{
		{"aggregate_field_count", o.AggregateFieldCount, 1},
		{"array_rank", o.ArrayRank, 1},
		{"array_dimension", o.ArrayDimension, 1},
		{"loop_iterations", o.LoopIterations, 1},
	} {
		if u.v.Min < u.min || u.v.Max < u.v.Min {
			return fmt.Errorf("%w: %s must satisfy %d <= min <= max", ErrInvalidOptions, u.name, u.min)
		}
	}
	if o.MaxFunctions < 1 {
		return fmt.Errorf("%w: max_functions must be positive", ErrInvalidOptions)
	}
	if o.MaxTransitiveCalls < 1 {
		return fmt.Errorf("%w: max_transitive_calls must be positive", ErrInvalidOptions)
	}
	if o.MaxArrayElements < 1 || o.ArrayShapeRetries < 1 {
		return fmt.Errorf("%w: array limits must be positive", ErrInvalidOptions)
	}
	if o.MaxJaggedDepth < 0 {
		return fmt.Errorf("%w: max_jagged_depth must not be negative", ErrInvalidOptions)
	}
	s := o.Statements
	if s.Assignment <= 0 {
		return fmt.Errorf("%w: statements.assignment must be positive", ErrInvalidOptions)
	}
	if s.Block < 0 || s.Call < 0 || s.If < 0 || s.Return < 0 || s.TryFinally < 0 || s.Loop < 0 {
		return fmt.Errorf("%w: statement weights must not be negative", ErrInvalidOptions)
	}
	e := o.Expressions
	if e.Literal <= 0 {
		return fmt.Errorf("%w: expressions.literal must be positive", ErrInvalidOptions)
	}
	if e.MemberAccess < 0 || e.Unary < 0 || e.Binary < 0 || e.Call < 0 || e.Increment < 0 || e.Decrement < 0 {
		return fmt.Errorf("%w: expression weights must not be negative", ErrInvalidOptions)
	}
	l := o.Literals
	if l.Zero+l.One+l.MinusOne+l.Min+l.Max+l.Small+l.Random <= 0 {
		return fmt.Errorf("%w: literal weights must not all be zero", ErrInvalidOptions)
	}
	known := Defaults().BinaryOperators
	for op, w := range o.BinaryOperators {
		if _, ok := known[op]; !ok {
			return fmt.Errorf("%w: unknown binary operator %q", ErrInvalidOptions, op)
		}
		if w < 0 {
			return fmt.Errorf("%w: binary operator %q has negative weight", ErrInvalidOptions, op)
		}
	}
	return nil
}

// WithTags returns a copy of o with the seed-tag features applied.
func (o Options) WithTags(vectors, unsafe bool) Options {
	o.Vectors = o.Vectors || vectors
	o.Unsafe = o.Unsafe || unsafe
	return o
}
