package query

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"slices"
	"time"

	"github.com/hupe1980/envquery/internal/arena"
	"github.com/hupe1980/envquery/itemtype"
	"github.com/hupe1980/envquery/model"
)

// MemoryAccounter tracks memory held by instances.
type MemoryAccounter interface {
	AcquireMemory(amount int64) error
	ReleaseMemory(amount int64)
}

type noopAccounter struct{}

func (noopAccounter) AcquireMemory(int64) error { return nil }
func (noopAccounter) ReleaseMemory(int64)       {}

// Config configures a new Instance.
type Config struct {
	ID      ID
	Query   *Query
	Owner   model.ActorID
	World   model.World
	RunMode RunMode
	// Contexts supplies context providers. ContextQuerier falls back to the owner.
	Contexts ContextSource
	// Params holds named param values that override FloatValue defaults.
	Params map[string]float32

	Logger *slog.Logger
	Memory MemoryAccounter
	// StoreDebugInfo captures a StepSnapshot after every completed stage.
	StoreDebugInfo bool
	Clock          func() time.Time
	Rand           *rand.Rand
}

// StepOutcome reports what one ExecuteOneStep call did.
type StepOutcome struct {
	OptionIndex    int
	TestIndex      int
	ItemsProcessed int
	StageDone      bool
	Status         Status
	Elapsed        time.Duration
}

// Instance executes one query for one owner.
//
// Instance is NOT thread-safe. It is driven by a single caller that invokes
// ExecuteOneStep until IsFinished.
type Instance struct {
	id       ID
	name     string
	owner    model.ActorID
	world    model.World
	mode     RunMode
	options  []Option
	contexts ContextSource
	params   map[string]float32

	logger         *slog.Logger
	memory         MemoryAccounter
	storeDebugInfo bool
	clock          func() time.Time
	rng            *rand.Rand

	status                  Status
	optionIndex             int
	currentTest             int
	currentTestStartingItem int
	numValidItems           int

	items    []Item
	details  []ItemDetails
	store    *arena.Arena
	itemType itemtype.Descriptor

	passOnSingleResult bool
	foundSingleResult  bool
	testSkipped        bool
	generationFull     bool
	budget             *StepBudget
	stepItems          int

	contextCache map[ContextKey]*ContextData
	contextBytes int64

	startTime          time.Time
	totalExecutionTime time.Duration
	optionTime         time.Duration
	stepCount          int

	debug    *DebugData
	released bool
}

// NewInstance creates an instance ready for its first step.
// A query without options, or missing a required param, finishes at once.
func NewInstance(cfg Config) *Instance {
	qi := &Instance{
		id:             cfg.ID,
		owner:          cfg.Owner,
		world:          cfg.World,
		mode:           cfg.RunMode,
		contexts:       cfg.Contexts,
		params:         cfg.Params,
		logger:         cfg.Logger,
		memory:         cfg.Memory,
		storeDebugInfo: cfg.StoreDebugInfo,
		clock:          cfg.Clock,
		rng:            cfg.Rand,
		currentTest:    -1,
	}
	if cfg.Query != nil {
		qi.name = cfg.Query.Name
		qi.options = cfg.Query.Options
	}
	if qi.logger == nil {
		qi.logger = slog.New(slog.DiscardHandler)
	}
	qi.logger = qi.logger.With("query", qi.name, "query_id", uint64(qi.id))
	if qi.memory == nil {
		qi.memory = noopAccounter{}
	}
	if qi.clock == nil {
		qi.clock = time.Now
	}
	if qi.rng == nil {
		qi.rng = rand.New(rand.NewSource(qi.clock().UnixNano())) //nolint:gosec // gameplay randomness
	}
	qi.store = arena.New(0, arena.WithMemoryAcquirer(qi.memory))
	qi.startTime = qi.clock()

	if qi.storeDebugInfo {
		qi.debug = newDebugData(qi)
	}

	if cfg.Query == nil || len(cfg.Query.Options) == 0 {
		qi.logger.Warn("query has no options")
	}
	if cfg.Query != nil {
		for _, p := range cfg.Query.RequiredParams {
			if _, ok := qi.params[p]; !ok {
				qi.logger.Warn("missing required param", "param", p)
				qi.status = MissingParam
				break
			}
		}
	}

	return qi
}

// ID returns the instance ID.
func (qi *Instance) ID() ID { return qi.id }

// Name returns the query name.
func (qi *Instance) Name() string { return qi.name }

// Owner returns the owning actor.
func (qi *Instance) Owner() model.ActorID { return qi.owner }

// World returns the world the query runs in.
func (qi *Instance) World() model.World { return qi.world }

// RunMode returns the run mode.
func (qi *Instance) RunMode() RunMode { return qi.mode }

// Status returns the current status.
func (qi *Instance) Status() Status { return qi.status }

// IsFinished reports whether no further steps will run.
func (qi *Instance) IsFinished() bool { return qi.status.IsFinished() }

// OptionIndex returns the option being executed.
func (qi *Instance) OptionIndex() int { return qi.optionIndex }

// CurrentTest returns the test being executed; -1 while generating.
func (qi *Instance) CurrentTest() int { return qi.currentTest }

// CurrentTestStartingItem returns the item index the current test resumes from.
func (qi *Instance) CurrentTestStartingItem() int { return qi.currentTestStartingItem }

// NumValidItems returns the number of items no test discarded.
func (qi *Instance) NumValidItems() int { return qi.numValidItems }

// NumItems returns the number of items, valid or not.
func (qi *Instance) NumItems() int { return len(qi.items) }

// Item returns item i.
func (qi *Instance) Item(i int) Item { return qi.items[i] }

// ItemDetails returns the diagnostics of item i, or nil once dropped.
func (qi *Instance) ItemDetails(i int) *ItemDetails {
	if i < 0 || i >= len(qi.details) {
		return nil
	}
	return &qi.details[i]
}

// ItemType returns the item type of the current option.
func (qi *Instance) ItemType() itemtype.Descriptor { return qi.itemType }

// Rand returns the instance random source.
func (qi *Instance) Rand() *rand.Rand { return qi.rng }

// Logger returns the instance logger.
func (qi *Instance) Logger() *slog.Logger { return qi.logger }

// Param returns a named param value.
func (qi *Instance) Param(name string) (float32, bool) {
	v, ok := qi.params[name]
	return v, ok
}

// TotalExecutionTime returns the time spent inside ExecuteOneStep.
func (qi *Instance) TotalExecutionTime() time.Duration { return qi.totalExecutionTime }

// StepCount returns the number of ExecuteOneStep calls that did work.
func (qi *Instance) StepCount() int { return qi.stepCount }

// StartTime returns when the instance was created.
func (qi *Instance) StartTime() time.Time { return qi.startTime }

// ExecuteOneStep advances the query by one stage within budget.
// Pass Unlimited to disable the deadline.
func (qi *Instance) ExecuteOneStep(budget time.Duration) StepOutcome {
	out := StepOutcome{
		OptionIndex: qi.optionIndex,
		TestIndex:   qi.currentTest,
		Status:      qi.status,
	}
	if qi.IsFinished() {
		return out
	}

	start := qi.clock()
	defer func() {
		elapsed := qi.clock().Sub(start)
		qi.totalExecutionTime += elapsed
		qi.optionTime += elapsed
		qi.stepCount++
		out.Elapsed = elapsed
		out.Status = qi.status
	}()

	if !qi.ownerValid() {
		qi.markOwnerLost()
		return out
	}

	if qi.optionIndex < 0 || qi.optionIndex >= len(qi.options) {
		qi.numValidItems = 0
		qi.finalizeQuery()
		return out
	}

	opt := &qi.options[qi.optionIndex]
	numTests := len(opt.Tests)
	qi.budget = NewStepBudget(budget, qi.clock)
	stageDone := true

	switch {
	case qi.currentTest < 0:
		qi.runGenerator(opt)

	case qi.currentTest < numTests:
		test := opt.Tests[qi.currentTest]
		if test == nil {
			qi.logger.Warn("option has nil test", "option", qi.optionIndex, "test", qi.currentTest)
			break
		}
		qi.prepareTest(opt, test, numTests)

		before := qi.currentTestStartingItem
		qi.testSkipped = false
		qi.stepItems = 0
		test.RunTest(qi)
		out.ItemsProcessed = qi.stepItems

		stalled := !qi.testSkipped && !qi.foundSingleResult && qi.currentTestStartingItem == before
		if stalled {
			qi.logger.Warn("test made no progress, skipping it",
				"option", qi.optionIndex,
				"test", qi.currentTest,
				"test_name", test.Describe(),
				"start_item", before,
			)
		}
		stageDone = qi.testSkipped || stalled || qi.foundSingleResult ||
			qi.currentTestStartingItem >= len(qi.items)
		if stageDone {
			qi.finalizeTest(test, !qi.testSkipped && !stalled)
		}

	default:
		qi.logger.Warn("query is trying to execute non existing test",
			"option", qi.optionIndex,
			"test", qi.currentTest,
		)
	}

	out.StageDone = stageDone
	if stageDone {
		qi.captureStep(opt)
		qi.currentTest++
		qi.currentTestStartingItem = 0
	}

	if !qi.IsFinished() && (qi.currentTest >= numTests || qi.numValidItems <= 0) {
		switch {
		case qi.numValidItems > 0:
			qi.finalizeQuery()
		case qi.optionIndex+1 < len(qi.options):
			qi.logger.Debug("option produced no items, trying next",
				"option", qi.optionIndex,
				"option_time", qi.optionTime,
			)
			qi.optionIndex++
			qi.currentTest = -1
		default:
			qi.finalizeQuery()
		}
	}

	return out
}

// prepareTest computes the single-result short-circuit flag. When the
// final filter runs as the deciding condition after scoring tests, items
// are sorted first so the first passing item is the best one.
func (qi *Instance) prepareTest(opt *Option, test Test, numTests int) {
	doingLastTest := qi.currentTest >= numTests-1
	qi.passOnSingleResult = doingLastTest && qi.mode == SingleBestItem && test.CanRunAsFinalCondition()

	if !qi.passOnSingleResult || qi.currentTestStartingItem != 0 {
		return
	}
	for _, prev := range opt.Tests[:numTests-1] {
		if prev != nil && prev.Purpose() != FilterOnly {
			qi.sortScores()
			return
		}
	}
}

func (qi *Instance) ownerValid() bool {
	if qi.owner == 0 || qi.world == nil {
		return true
	}
	_, ok := qi.world.Actor(qi.owner)
	return ok
}

func (qi *Instance) runGenerator(opt *Option) {
	qi.items = qi.items[:0]
	qi.details = nil
	qi.passOnSingleResult = false
	qi.foundSingleResult = false
	qi.generationFull = false
	qi.itemType = opt.ItemType()

	if opt.Generator == nil || qi.itemType == nil {
		qi.logger.Warn("option has no generator", "option", qi.optionIndex)
		qi.store.Reset(0)
		qi.finalizeGeneration(opt)
		return
	}

	qi.store.Reset(qi.itemType.ValueSize())
	opt.Generator.GenerateItems(qi)
	qi.finalizeGeneration(opt)
}

// finalizeGeneration sizes ItemDetails to the generated items and resets
// the per-option counters.
func (qi *Instance) finalizeGeneration(opt *Option) {
	numTests := len(opt.Tests)
	qi.numValidItems = len(qi.items)
	qi.optionTime = 0

	if qi.numValidItems > 0 {
		qi.details = make([]ItemDetails, len(qi.items))
		for i := range qi.details {
			qi.details[i] = newItemDetails(numTests, i)
		}
	}

	if qi.debug != nil {
		qi.debug.PerformedTestNames = qi.debug.PerformedTestNames[:0]
	}

	if opt.Generator != nil {
		qi.logger.Debug("generated items",
			"option", qi.optionIndex,
			"generator", opt.Generator.Describe(),
			"items", len(qi.items),
		)
	}
}

// finalizeTest runs normalization for a completed test. The deciding
// single-result test drops diagnostics unless debug capture is on.
func (qi *Instance) finalizeTest(test Test, ran bool) {
	if qi.debug != nil {
		qi.debug.PerformedTestNames = append(qi.debug.PerformedTestNames, test.Describe())
	}

	if !qi.passOnSingleResult {
		if ran {
			test.NormalizeItemScores(qi)
		}
		return
	}

	if !qi.storeDebugInfo {
		qi.details = nil
	}
}

// SkipCurrentTest ends the current test without effect. Tests call it when
// they cannot apply this run, e.g. a context has no values.
func (qi *Instance) SkipCurrentTest(reason string) {
	qi.testSkipped = true
	qi.logger.Debug("test skipped",
		"option", qi.optionIndex,
		"test", qi.currentTest,
		"reason", reason,
	)
}

// HandleFailedTestResult discards item i on behalf of the current test.
func (qi *Instance) HandleFailedTestResult(i int) {
	if !qi.items[i].IsValid() {
		return
	}
	qi.items[i].Discard()
	qi.numValidItems--
	if i < len(qi.details) {
		qi.details[i].FailedTestIndex = qi.currentTest
	}
}

// pickSingleItem keeps only item i.
func (qi *Instance) pickSingleItem(i int) {
	best := qi.items[i]
	qi.items = append(qi.items[:0], best)
	if i < len(qi.details) {
		d := qi.details[i]
		qi.details = append(qi.details[:0], d)
	}
	qi.numValidItems = 1
}

func (qi *Instance) markOwnerLost() {
	qi.status = OwnerLost
	qi.dropItems()
	qi.logger.Debug("query owner lost")
}

// Abort stops the instance. Items are dropped.
func (qi *Instance) Abort() {
	if qi.IsFinished() {
		return
	}
	qi.status = Aborted
	qi.dropItems()
}

func (qi *Instance) dropItems() {
	qi.items = nil
	qi.details = nil
	qi.numValidItems = 0
	qi.store.Reset(0)
}

// Release frees item and context memory. It is safe to call from any state
// and more than once; the instance must not be stepped afterwards.
func (qi *Instance) Release() {
	if qi.released {
		return
	}
	qi.released = true
	if !qi.IsFinished() {
		qi.status = Aborted
	}
	qi.items = nil
	qi.details = nil
	qi.store.Free()
	if qi.contextBytes > 0 {
		qi.memory.ReleaseMemory(qi.contextBytes)
		qi.contextBytes = 0
	}
	qi.contextCache = nil
}

var (
	// ErrItemTypeMismatch is returned when a payload does not match the option's item type.
	ErrItemTypeMismatch = errors.New("item payload does not match item type")
	// ErrNotGenerating is returned when items are added outside generation.
	ErrNotGenerating = errors.New("items can only be added during generation")
)

// AddItemData appends an item with payload raw. Generators call it during
// GenerateItems. Once the memory limit is hit, further items are dropped.
func (qi *Instance) AddItemData(raw []byte) error {
	return qi.AddScoredItem(raw, 0)
}

// AddScoredItem appends an item with an initial score.
func (qi *Instance) AddScoredItem(raw []byte, score float32) error {
	if qi.currentTest >= 0 {
		return ErrNotGenerating
	}
	if qi.generationFull {
		return arena.ErrAllocationFailed
	}
	h, err := qi.store.Append(raw)
	if err != nil {
		if errors.Is(err, arena.ErrStrideMismatch) {
			return fmt.Errorf("%w: %w", ErrItemTypeMismatch, err)
		}
		qi.generationFull = true
		qi.logger.Warn("item store full, generation truncated",
			"option", qi.optionIndex,
			"items", len(qi.items),
			"error", err,
		)
		return err
	}
	qi.items = append(qi.items, Item{Handle: ItemHandle(h), Score: score})
	return nil
}

// AddLocation appends a Point item.
func (qi *Instance) AddLocation(v model.Vector) error {
	return qi.AddItemData(itemtype.Point.Encode(v))
}

// AddDirection appends a Direction item.
func (qi *Instance) AddDirection(dir model.Vector) error {
	return qi.AddItemData(itemtype.Direction.Encode(dir))
}

// AddActor appends an Actor item.
func (qi *Instance) AddActor(id model.ActorID) error {
	return qi.AddItemData(itemtype.Actor.Encode(id))
}

// ItemData returns the raw payload of item i.
func (qi *Instance) ItemData(i int) []byte {
	if i < 0 || i >= len(qi.items) {
		return nil
	}
	return qi.store.Get(qi.items[i].Handle.arena())
}

// ItemLocation reads the location of item i.
func (qi *Instance) ItemLocation(i int) (model.Vector, bool) {
	return itemtype.Location(qi.itemType, qi.ItemData(i), qi.world)
}

// ItemRotation reads the rotation of item i.
func (qi *Instance) ItemRotation(i int) (model.Rotator, bool) {
	return itemtype.Rotation(qi.itemType, qi.ItemData(i), qi.world)
}

// ItemActor resolves the actor of item i.
func (qi *Instance) ItemActor(i int) (model.Actor, bool) {
	return itemtype.ResolveActor(qi.itemType, qi.ItemData(i), qi.world)
}

// sortScores orders valid items before invalid ones, then by descending
// score. Ties keep generation order. ItemDetails follow their items.
func (qi *Instance) sortScores() {
	n := len(qi.items)
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	slices.SortStableFunc(perm, func(a, b int) int {
		ia, ib := qi.items[a], qi.items[b]
		if ia.IsValid() != ib.IsValid() {
			if ia.IsValid() {
				return -1
			}
			return 1
		}
		switch {
		case ia.Score > ib.Score:
			return -1
		case ia.Score < ib.Score:
			return 1
		}
		return 0
	})

	items := make([]Item, n)
	for i, p := range perm {
		items[i] = qi.items[p]
	}
	qi.items = items

	if len(qi.details) == n {
		details := make([]ItemDetails, n)
		for i, p := range perm {
			details[i] = qi.details[p]
		}
		qi.details = details
	}
}
