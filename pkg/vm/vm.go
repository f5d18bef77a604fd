package vm

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/diannexlang/dx/pkg/bytecode"
	"github.com/diannexlang/dx/pkg/container"
	"github.com/diannexlang/dx/pkg/localstore"
	"github.com/diannexlang/dx/pkg/value"
)

// FunctionHandler dispatches call_external (spec.md §4.3). Implementations
// are supplied by the host; pkg/external provides a registry-backed one.
type FunctionHandler interface {
	Invoke(ctx context.Context, name string, args []value.Value) (value.Value, error)
}

// ChanceFunc decides whether a choice_add candidate is offered, given its
// chance operand. The default treats chance == 1 as "always offered".
type ChanceFunc func(chance float64) bool

// WeightedChanceFunc picks an index among weighted choose_add candidates.
type WeightedChanceFunc func(weights []float64) int

// choiceOption is one accumulated choice_begin/choice_add candidate.
type choiceOption struct {
	Address int32
	Text    string
}

// chooseOption is one accumulated choose_add candidate.
type chooseOption struct {
	Weight  float64
	Pointer int32
}

// frame is a saved (ip, stack, locals) triple, pushed by call and restored
// by exit/ret (spec.md §4.4).
type frame struct {
	returnIP int32
	stack    []value.Value
	locals   *localstore.Store
	name     string
}

// VM executes a Binary's instruction stream under the cooperative
// pause/resume protocol described in spec.md §4.8 and §5. A VM is bound to
// a single Binary for its lifetime; run_scene resets the per-run state (ip,
// operand and call stacks, locals, save register, text and choice state),
// while globals, flags and the definitions cache persist across runs.
type VM struct {
	binary  *container.Binary
	handler FunctionHandler
	chance  ChanceFunc
	weighted WeightedChanceFunc
	strict  bool
	log     zerolog.Logger

	ip            int32
	stack         []value.Value
	saveRegister  value.Value
	locals        *localstore.Store
	callStack     []frame
	globals       map[string]value.Value
	flags         map[string]value.Value
	choices       []choiceOption
	chooseOptions []chooseOption

	definitionsCache map[string]string
	fingerprintKey   [16]byte

	inChoice      bool
	selectChoice  bool
	runningText   bool
	paused        bool
	sceneCompleted bool

	currentScene string
	currentText  string
	haveScene    bool
	haveText     bool

	runID string

	debugger *Debugger
}

// Option configures a VM at construction time.
type Option func(*VM)

// WithChanceFunc overrides the default choice_add chance callback.
func WithChanceFunc(f ChanceFunc) Option { return func(vm *VM) { vm.chance = f } }

// WithWeightedChanceFunc overrides the default choose_select weighting.
func WithWeightedChanceFunc(f WeightedChanceFunc) Option {
	return func(vm *VM) { vm.weighted = f }
}

// WithStrictMode turns opcode type-mismatches into errors instead of
// silent no-ops (spec.md §9 "Tagged Values"). Off by default.
func WithStrictMode(strict bool) Option { return func(vm *VM) { vm.strict = strict } }

// WithLogger attaches a zerolog.Logger the VM uses for warnings about
// malformed bytecode (e.g. dangling flag-initializer pairs). Defaults to
// a disabled logger so embedding hosts opt in explicitly.
func WithLogger(l zerolog.Logger) Option { return func(vm *VM) { vm.log = l } }

// New constructs a VM over binary. function_handler is required; a nil
// handler makes call_external always return an error.
func New(binary *container.Binary, handler FunctionHandler, opts ...Option) *VM {
	vm := &VM{
		binary:  binary,
		handler: handler,
		chance:  defaultChanceFunc,
		weighted: defaultWeightedChanceFunc,
		log:     zerolog.Nop(),
		ip:      -1,
		globals: make(map[string]value.Value),
		flags:   make(map[string]value.Value),
	}
	for _, o := range opts {
		o(vm)
	}
	copy(vm.fingerprintKey[:], []byte("diannex-dxb-fp!!"))
	vm.resolveAllDefinitions(context.Background())
	return vm
}

func defaultChanceFunc(chance float64) bool {
	if chance == 1 {
		return true
	}
	return rand.Float64() < chance
}

// defaultWeightedChanceFunc follows spec.md §4.5's documented (idiosyncratic)
// formula rather than a standard weighted sample, so that behavior matches
// the compiler's reference runtime: round(r) against prefix sums of the
// weights, r uniform in [0, total-1).
func defaultWeightedChanceFunc(weights []float64) int {
	if len(weights) == 0 {
		return -1
	}
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rand.Float64() * (total - 1)
	prefix := 0.0
	for i, w := range weights {
		if roundHalfAwayFromZero(r) >= prefix {
			if i == len(weights)-1 {
				return i
			}
		} else {
			return i - 1
		}
		prefix += w
	}
	return len(weights) - 1
}

func roundHalfAwayFromZero(f float64) float64 {
	if f < 0 {
		return -roundHalfAwayFromZero(-f)
	}
	i := float64(int64(f))
	if f-i >= 0.5 {
		return i + 1
	}
	return i
}

// Paused reports whether the VM is suspended awaiting host action.
func (vm *VM) Paused() bool { return vm.paused }

// RunningText reports whether CurrentText holds a line awaiting Resume.
func (vm *VM) RunningText() bool { return vm.runningText }

// SelectChoice reports whether Choices holds candidates awaiting ChooseChoice.
func (vm *VM) SelectChoice() bool { return vm.selectChoice }

// SceneCompleted reports whether the active scene ran to its final exit.
func (vm *VM) SceneCompleted() bool { return vm.sceneCompleted }

// CurrentText returns the text queued by the most recent text_run, if any.
func (vm *VM) CurrentText() (string, bool) { return vm.currentText, vm.haveText }

// CurrentScene returns the name passed to the most recent RunScene, if any.
func (vm *VM) CurrentScene() (string, bool) { return vm.currentScene, vm.haveScene }

// Choices returns the choice candidates accumulated since choice_begin.
func (vm *VM) Choices() []string {
	out := make([]string, len(vm.choices))
	for i, c := range vm.choices {
		out[i] = c.Text
	}
	return out
}

// GetFlag implements localstore.FlagHost.
func (vm *VM) GetFlag(name string) value.Value {
	if v, ok := vm.flags[name]; ok {
		return v
	}
	return value.Undef
}

// SetFlag implements localstore.FlagHost, and is also the public host API
// for setting a flag directly (spec.md §4.8).
func (vm *VM) SetFlag(name string, v value.Value) { vm.flags[name] = v }

// GlobalNames returns the names of every global currently set, sorted, for
// host-side introspection and the debugger's `globals` command.
func (vm *VM) GlobalNames() []string {
	names := maps.Keys(vm.globals)
	slices.Sort(names)
	return names
}

// FlagNames returns the names of every flag currently set, sorted.
func (vm *VM) FlagNames() []string {
	names := maps.Keys(vm.flags)
	slices.Sort(names)
	return names
}

// RunID returns the identifier assigned to the scene currently (or most
// recently) run, used to correlate log lines across a single playthrough.
func (vm *VM) RunID() string { return vm.runID }

// GetDefinition resolves a definition by name (spec.md §4.7), using the
// cache populated at load time / by LoadTranslationFile.
func (vm *VM) GetDefinition(name string) (string, error) {
	if s, ok := vm.definitionsCache[name]; ok {
		return s, nil
	}
	return "", fmt.Errorf("vm: definition %q not found", name)
}

// RunScene begins execution of the named scene (spec.md §4.8), resetting
// all per-run state. It runs the scene's flag initializers (if any) before
// returning; the caller should then drive Update until Paused.
func (vm *VM) RunScene(ctx context.Context, name string) error {
	scene, ok := vm.binary.SceneByName(name)
	if !ok {
		return fmt.Errorf("vm: scene %q not found", name)
	}
	vm.resetRunState()
	vm.currentScene = name
	vm.haveScene = true

	runID := uuid.NewString()
	vm.runID = runID
	logger := vm.log.With().Str("run_id", runID).Str("scene", name).Logger()
	logger.Debug().Msg("run_scene starting")

	if err := vm.runFlagInitializers(ctx, scene, 0, &logger); err != nil {
		return err
	}
	vm.ip = scene.Entry()
	return nil
}

func (vm *VM) resetRunState() {
	vm.ip = -1
	vm.stack = nil
	vm.saveRegister = value.Undef
	vm.locals = localstore.New()
	vm.callStack = nil
	vm.inChoice = false
	vm.selectChoice = false
	vm.runningText = false
	vm.paused = false
	vm.sceneCompleted = false
	vm.haveText = false
	vm.currentText = ""
	vm.choices = nil
	vm.chooseOptions = nil
}

// runFlagInitializers executes the (value-init, name-init) pairs that
// precede a scene/function body (spec.md §4.4 step 4), binding each
// resulting name in vm.locals' flag overlay.
//
// baseIndex offsets the local slots flags bind to, so a function's flag
// initializers never alias its positional-argument slots (spec.md §4.4
// states argc positional arguments occupy locals 0..argc-1; scenes never
// take arguments, so baseIndex is 0 for run_scene and argc for call).
func (vm *VM) runFlagInitializers(ctx context.Context, sf *container.SceneFunc, baseIndex int, logger *zerolog.Logger) error {
	pairs, dangling := sf.FlagInitPairs()
	if dangling != nil {
		logger.Warn().Int32("index", *dangling).Msg("scene/function has a dangling flag-initializer index; ignoring")
	}
	for i, pair := range pairs {
		v, err := vm.runSubProgramToPause(ctx, pair[0])
		if err != nil {
			return fmt.Errorf("flag initializer %d value program: %w", i, err)
		}
		n, err := vm.runSubProgramToPause(ctx, pair[1])
		if err != nil {
			return fmt.Errorf("flag initializer %d name program: %w", i, err)
		}
		name, ok := n.Str()
		if !ok {
			continue
		}
		if _, exists := vm.flags[name]; !exists {
			vm.flags[name] = v
		} else {
			logger.Debug().Str("flag", name).Msg("flag already set; initializer value ignored")
		}
		vm.locals.BindFlag(baseIndex+i, name)
	}
	return nil
}

// runSubProgramToPause runs a restricted sub-program (flag initializer or
// definition interpolation) starting at ip until it exits, sharing the
// caller's stack but saving/restoring ip (spec.md §4.7, §5 "Reentrancy").
// The sub-program is expected to push exactly one value and then exit; it
// must not contain text_run or choice/choose opcodes.
func (vm *VM) runSubProgramToPause(ctx context.Context, ip int32) (value.Value, error) {
	savedIP := vm.ip
	vm.ip = ip
	defer func() { vm.ip = savedIP }()

	for {
		inst, next, err := bytecode.DecodeAt(vm.binary.Instructions, int(vm.ip))
		if err != nil {
			return value.Undef, err
		}
		if inst.Op == bytecode.TextRun || isChoiceOpcode(inst.Op) {
			return value.Undef, fmt.Errorf("vm: sub-program used a disallowed opcode %s", inst.Op)
		}
		if inst.Op == bytecode.Exit || inst.Op == bytecode.Ret {
			var v value.Value
			if len(vm.stack) > 0 {
				v = vm.popStack()
			}
			return v, nil
		}
		vm.ip = int32(next)
		if err := vm.execute(ctx, inst); err != nil {
			return value.Undef, err
		}
	}
}

func isChoiceOpcode(op bytecode.Opcode) bool {
	switch op {
	case bytecode.ChoiceBegin, bytecode.ChoiceAdd, bytecode.ChoiceAddTruthy, bytecode.ChoiceSelect,
		bytecode.ChooseAdd, bytecode.ChooseAddTruthy, bytecode.ChooseSelect:
		return true
	default:
		return false
	}
}

// Update executes a single instruction if the VM is not paused (spec.md
// §4.8). It is a no-op while paused; the host must call Resume or
// ChooseChoice first.
func (vm *VM) Update(ctx context.Context) error {
	if vm.paused {
		return nil
	}
	if vm.ip < 0 {
		return nil
	}
	if vm.debugger != nil && vm.debugger.ShouldPause() {
		if !vm.debugger.InteractivePrompt() {
			return ErrDebugAborted
		}
	}
	inst, next, err := bytecode.DecodeAt(vm.binary.Instructions, int(vm.ip))
	if err != nil {
		return err
	}
	vm.ip = int32(next)
	return vm.execute(ctx, inst)
}

// Resume clears running_text and, unless a choice selection is pending,
// clears paused (spec.md §4.8).
func (vm *VM) Resume() {
	vm.runningText = false
	vm.haveText = false
	if vm.selectChoice {
		return
	}
	vm.paused = false
}

// ChooseChoice selects choice i from the accumulated Choices list, jumps to
// its address, and clears select_choice/paused (spec.md §4.8, §4.5).
func (vm *VM) ChooseChoice(i int) error {
	if i < 0 || i >= len(vm.choices) {
		return vm.runtimeErrorf("choice index %d out of range (have %d)", i, len(vm.choices))
	}
	vm.ip = vm.choices[i].Address
	vm.selectChoice = false
	vm.paused = false
	vm.inChoice = false
	vm.choices = nil
	return nil
}

// LoadTranslationFile overlays a parsed translation table and rebuilds the
// definitions cache (spec.md §4.8, §4.7).
func (vm *VM) LoadTranslationFile(ctx context.Context, lines []string) {
	vm.binary.TranslationTable = lines
	vm.binary.TranslationLoaded = true
	vm.resolveAllDefinitions(ctx)
}

func (vm *VM) symbolName(symbol uint32) string {
	if int(symbol) >= len(vm.binary.StringTable) {
		return ""
	}
	return vm.binary.StringTable[symbol]
}

func (vm *VM) pushStack(v value.Value) { vm.stack = append(vm.stack, v) }

func (vm *VM) popStack() value.Value {
	if len(vm.stack) == 0 {
		return value.Undef
	}
	v := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	return v
}

func (vm *VM) peekStack() value.Value {
	if len(vm.stack) == 0 {
		return value.Undef
	}
	return vm.stack[len(vm.stack)-1]
}
