package template

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/hupe1980/envquery/envtest"
	"github.com/hupe1980/envquery/generator"
	"github.com/hupe1980/envquery/query"
)

var (
	// ErrUnknownType is returned for generator or test types with no factory.
	ErrUnknownType = errors.New("unknown type")

	// ErrInvalidValue is returned for settings that cannot be parsed.
	ErrInvalidValue = errors.New("invalid value")

	// ErrMissingField is returned when a required setting is absent.
	ErrMissingField = errors.New("missing field")
)

// GeneratorFactory builds a generator from its definition.
type GeneratorFactory func(def GeneratorDef) (query.Generator, error)

// TestFactory builds a test from its definition. Factories usually start
// from the test's constructor and finish with def.ApplyBase.
type TestFactory func(def TestDef) (query.Test, error)

// Registry maps type names to factories. Type names match case-insensitively.
// It is safe for concurrent use.
type Registry struct {
	mu         sync.RWMutex
	generators map[string]GeneratorFactory
	tests      map[string]TestFactory
}

// NewRegistry returns a registry with the built-in generators and tests.
func NewRegistry() *Registry {
	r := &Registry{
		generators: make(map[string]GeneratorFactory),
		tests:      make(map[string]TestFactory),
	}

	r.RegisterGenerator("SimpleGrid", buildSimpleGrid)
	r.RegisterGenerator("ActorsOfClass", buildActorsOfClass)
	r.RegisterGenerator("ContextPoints", buildContextPoints)

	r.RegisterTest("Distance", buildDistance)
	r.RegisterTest("Dot", buildDot)
	r.RegisterTest("Random", buildRandom)
	r.RegisterTest("Constant", buildConstant)

	return r
}

// RegisterGenerator adds or replaces a generator factory.
func (r *Registry) RegisterGenerator(name string, f GeneratorFactory) {
	r.mu.Lock()
	r.generators[strings.ToLower(name)] = f
	r.mu.Unlock()
}

// RegisterTest adds or replaces a test factory.
func (r *Registry) RegisterTest(name string, f TestFactory) {
	r.mu.Lock()
	r.tests[strings.ToLower(name)] = f
	r.mu.Unlock()
}

// Types returns the registered generator and test type names, sorted.
func (r *Registry) Types() (generators, tests []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.generators {
		generators = append(generators, name)
	}
	for name := range r.tests {
		tests = append(tests, name)
	}
	slices.Sort(generators)
	slices.Sort(tests)
	return generators, tests
}

// Build turns a definition into a query template.
func (r *Registry) Build(def QueryDef) (*query.Query, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("%w: query name", ErrMissingField)
	}

	q := &query.Query{
		Name:           def.Name,
		RequiredParams: slices.Clone(def.RequiredParams),
		Options:        make([]query.Option, 0, len(def.Options)),
	}

	for i, optDef := range def.Options {
		gen, err := r.buildGenerator(optDef.Generator)
		if err != nil {
			return nil, fmt.Errorf("query %q option %d: %w", def.Name, i, err)
		}
		opt := query.Option{Generator: gen, Tests: make([]query.Test, 0, len(optDef.Tests))}
		for j, testDef := range optDef.Tests {
			test, err := r.buildTest(testDef)
			if err != nil {
				return nil, fmt.Errorf("query %q option %d test %d: %w", def.Name, i, j, err)
			}
			opt.Tests = append(opt.Tests, test)
		}
		q.Options = append(q.Options, opt)
	}
	return q, nil
}

// BuildFile builds every query of f.
func (r *Registry) BuildFile(f *File) ([]*query.Query, error) {
	out := make([]*query.Query, 0, len(f.Queries))
	for _, def := range f.Queries {
		q, err := r.Build(def)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

func (r *Registry) buildGenerator(def GeneratorDef) (query.Generator, error) {
	r.mu.RLock()
	f, ok := r.generators[strings.ToLower(def.Type)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: generator %q", ErrUnknownType, def.Type)
	}
	return f(def)
}

func (r *Registry) buildTest(def TestDef) (query.Test, error) {
	r.mu.RLock()
	f, ok := r.tests[strings.ToLower(def.Type)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: test %q", ErrUnknownType, def.Type)
	}
	return f(def)
}

func buildSimpleGrid(def GeneratorDef) (query.Generator, error) {
	if !def.Spacing.IsSet() {
		return nil, fmt.Errorf("%w: SimpleGrid spacing", ErrMissingField)
	}
	return &generator.SimpleGrid{
		Radius:  def.Radius.FloatValue(),
		Spacing: def.Spacing.FloatValue(),
		Around:  query.ContextKey(def.Around),
	}, nil
}

func buildActorsOfClass(def GeneratorDef) (query.Generator, error) {
	if def.Class == "" {
		return nil, fmt.Errorf("%w: ActorsOfClass class", ErrMissingField)
	}
	return &generator.ActorsOfClass{
		Class:  def.Class,
		Radius: def.Radius.FloatValue(),
		Around: query.ContextKey(def.Around),
	}, nil
}

func buildContextPoints(def GeneratorDef) (query.Generator, error) {
	return &generator.ContextPoints{Context: query.ContextKey(def.Context)}, nil
}

func buildDistance(def TestDef) (query.Test, error) {
	to := query.ContextKey(def.Context)
	if to == "" {
		to = query.ContextQuerier
	}
	t := envtest.NewDistance(to, query.FilterAndScore)
	if def.Mode != "" {
		mode, err := parseEnum("distance mode", def.Mode, distanceModes)
		if err != nil {
			return nil, err
		}
		t.Mode = mode
	}
	return t, def.ApplyBase(&t.TestBase)
}

func buildDot(def TestDef) (query.Test, error) {
	a, err := def.LineA.line()
	if err != nil {
		return nil, fmt.Errorf("line_a: %w", err)
	}
	b, err := def.LineB.line()
	if err != nil {
		return nil, fmt.Errorf("line_b: %w", err)
	}
	t := envtest.NewDot(a, b)
	t.Absolute = def.Absolute
	return t, def.ApplyBase(&t.TestBase)
}

func buildRandom(def TestDef) (query.Test, error) {
	t := envtest.NewRandom()
	return t, def.ApplyBase(&t.TestBase)
}

func buildConstant(def TestDef) (query.Test, error) {
	if !def.Value.IsSet() {
		return nil, fmt.Errorf("%w: Constant value", ErrMissingField)
	}
	t := envtest.NewConstant(def.Value.FloatValue())
	return t, def.ApplyBase(&t.TestBase)
}

func (d LineDef) line() (envtest.Line, error) {
	l := envtest.Line{
		From: query.ContextKey(d.From),
		To:   query.ContextKey(d.To),
	}
	if l.From == "" {
		l.From = query.ContextQuerier
	}
	if d.Mode != "" {
		mode, err := parseEnum("line mode", d.Mode, lineModes)
		if err != nil {
			return l, err
		}
		l.Mode = mode
	}
	if l.Mode == envtest.LineSegment && l.To == "" {
		return l, fmt.Errorf("%w: segment needs to", ErrMissingField)
	}
	return l, nil
}

// ApplyBase copies the shared settings of d onto b. Unset fields keep the
// values already in b.
func (d TestDef) ApplyBase(b *query.TestBase) error {
	var err error
	if d.Name != "" {
		b.Name = d.Name
	}
	if d.Purpose != "" {
		if b.TestPurpose, err = parseEnum("purpose", d.Purpose, purposes); err != nil {
			return err
		}
	}
	if d.FilterOp != "" {
		if b.MultipleContextFilterOp, err = parseEnum("filter op", d.FilterOp, filterOps); err != nil {
			return err
		}
	}
	if d.ScoreOp != "" {
		if b.MultipleContextScoreOp, err = parseEnum("score op", d.ScoreOp, scoreOps); err != nil {
			return err
		}
	}
	if d.Filter != "" {
		if b.Filter, err = parseEnum("filter", d.Filter, filterTypes); err != nil {
			return err
		}
	}
	if d.FilterMin.IsSet() {
		b.FilterMin = d.FilterMin.FloatValue()
	}
	if d.FilterMax.IsSet() {
		b.FilterMax = d.FilterMax.FloatValue()
	}
	if d.BoolMatch != nil {
		b.BoolMatch = *d.BoolMatch
	}
	if d.Equation != "" {
		if b.Equation, err = parseEnum("equation", d.Equation, equations); err != nil {
			return err
		}
	}
	if d.Weight.IsSet() {
		b.SetWeight(d.Weight.FloatValue())
	}
	if d.ClampMin != "" {
		if b.ClampMinType, err = parseEnum("clamp_min", d.ClampMin, clampTypes); err != nil {
			return err
		}
	}
	if d.ClampMinValue.IsSet() {
		b.ScoreClampMin = d.ClampMinValue.FloatValue()
	}
	if d.ClampMax != "" {
		if b.ClampMaxType, err = parseEnum("clamp_max", d.ClampMax, clampTypes); err != nil {
			return err
		}
	}
	if d.ClampMaxValue.IsSet() {
		b.ScoreClampMax = d.ClampMaxValue.FloatValue()
	}
	return nil
}

var (
	purposes = map[string]query.Purpose{
		"filterandscore": query.FilterAndScore,
		"filter":         query.FilterOnly,
		"filteronly":     query.FilterOnly,
		"score":          query.ScoreOnly,
		"scoreonly":      query.ScoreOnly,
	}
	filterOps = map[string]query.FilterOp{
		"all": query.AllPass,
		"any": query.AnyPass,
	}
	scoreOps = map[string]query.ScoreOp{
		"average": query.AverageScore,
		"min":     query.MinScore,
		"max":     query.MaxScore,
		"sum":     query.SumScore,
	}
	filterTypes = map[string]query.FilterType{
		"range":   query.FilterRange,
		"minimum": query.FilterMinimum,
		"maximum": query.FilterMaximum,
		"match":   query.FilterMatch,
	}
	equations = map[string]query.ScoringEquation{
		"linear":        query.Linear,
		"inverselinear": query.InverseLinear,
		"square":        query.Square,
		"constant":      query.Constant,
	}
	clampTypes = map[string]query.ClampType{
		"none":            query.ClampNone,
		"specified":       query.ClampSpecified,
		"filterthreshold": query.ClampFilterThreshold,
	}
	distanceModes = map[string]envtest.DistanceMode{
		"3d":        envtest.Distance3D,
		"2d":        envtest.Distance2D,
		"z":         envtest.DistanceZ,
		"absolutez": envtest.DistanceAbsoluteZ,
	}
	lineModes = map[string]envtest.LineMode{
		"rotation": envtest.LineRotation,
		"segment":  envtest.LineSegment,
	}
)

// parseEnum looks s up ignoring case, underscores and dashes.
func parseEnum[T any](what, s string, values map[string]T) (T, error) {
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	v, ok := values[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %s %q", ErrInvalidValue, what, s)
	}
	return v, nil
}
