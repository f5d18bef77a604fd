// Package container decodes the DXB on-wire binary format (spec.md §4.1)
// into the immutable Binary snapshot the VM executes against.
package container

// SceneFunc is the shared shape of a scene or function table entry
// (spec.md §3): symbol indexes into StringTable, instruction_indices[0] is
// the entry point, and the remaining entries are (value-init, name-init)
// flag-initializer pairs run in declaration order before the body.
type SceneFunc struct {
	Symbol             uint32
	InstructionIndices []int32
}

// FlagInitPairs returns the scene/function's flag-initializer program
// pairs, i.e. InstructionIndices[1:] grouped two at a time. spec.md §9
// design note 4 calls out that the last entry must still be consumed when
// the count is even (malformed) rather than silently dropped; FlagInitPairs
// returns the dangling trailing index (if any) as its second return value
// so the caller can log it instead of losing it silently.
func (sf SceneFunc) FlagInitPairs() (pairs [][2]int32, dangling *int32) {
	rest := sf.InstructionIndices[1:]
	n := len(rest) / 2
	pairs = make([][2]int32, 0, n)
	for i := 0; i < n; i++ {
		pairs = append(pairs, [2]int32{rest[2*i], rest[2*i+1]})
	}
	if len(rest)%2 != 0 {
		d := rest[len(rest)-1]
		dangling = &d
	}
	return pairs, dangling
}

// Entry returns the scene/function's entry instruction index.
func (sf SceneFunc) Entry() int32 { return sf.InstructionIndices[0] }

// Definition is a named, optionally-interpolated string resolved on demand
// (spec.md §3, §4.7). Reference is a tagged string id: see ResolveStringRef.
type Definition struct {
	Symbol           uint32
	Reference        uint32
	InstructionIndex int32
}

// HasInterpolation reports whether this definition's string must be
// interpolated against a sub-program run, versus returned verbatim.
func (d Definition) HasInterpolation() bool { return d.InstructionIndex != -1 }

// Binary is the immutable snapshot produced by Decode. It is never mutated
// in place except by the VM's LoadTranslationFile, which replaces
// TranslationTable and sets TranslationLoaded; the name indexes and the
// checksum are not rebuilt then.
type Binary struct {
	Version              uint8
	TranslationLoaded    bool
	StringTable          []string
	TranslationTable     []string
	Instructions         []byte
	ExternalFunctionList []uint32
	Scenes               []SceneFunc
	Functions            []SceneFunc
	Definitions          []Definition

	sceneIndex              map[string]int
	functionIndex           map[string]int
	definitionIndex         map[string]int
	sortedExternalFunctions []uint32
	checksum                [32]byte
}

// SceneByName looks up a scene by its symbol name (string_table[symbol]).
func (b *Binary) SceneByName(name string) (*SceneFunc, bool) {
	i, ok := b.sceneIndex[name]
	if !ok {
		return nil, false
	}
	return &b.Scenes[i], true
}

// FunctionByName looks up a function by its symbol name.
func (b *Binary) FunctionByName(name string) (*SceneFunc, bool) {
	i, ok := b.functionIndex[name]
	if !ok {
		return nil, false
	}
	return &b.Functions[i], true
}

// DefinitionByName looks up a definition by its symbol name.
func (b *Binary) DefinitionByName(name string) (*Definition, bool) {
	i, ok := b.definitionIndex[name]
	if !ok {
		return nil, false
	}
	return &b.Definitions[i], true
}

// Checksum returns a content hash over the decoded instruction stream and
// string tables, computed once at load time. Hosts can use it to detect
// whether a DXB file has actually changed before invalidating caches keyed
// off of it (e.g. skip recompiling dependent save-file schemas).
func (b *Binary) Checksum() [32]byte { return b.checksum }

// New assembles a Binary from already-decoded parts and builds its name
// indexes. Decode is the usual constructor; New exists for callers (tests,
// or hosts building a Binary programmatically rather than from a DXB file)
// that already have the component tables in hand.
func New(stringTable, translationTable []string, instructions []byte, scenes, functions []SceneFunc, definitions []Definition, externalFunctionList []uint32) *Binary {
	b := &Binary{
		StringTable:          stringTable,
		TranslationTable:     translationTable,
		Instructions:         instructions,
		Scenes:               scenes,
		Functions:            functions,
		Definitions:          definitions,
		ExternalFunctionList: externalFunctionList,
	}
	b.checksum = computeChecksum(b)
	b.buildIndexes()
	return b
}

// buildIndexes populates the name -> table-index maps used by *ByName
// lookups. Called once by Decode and once by New; symbols index
// StringTable, which a translation overlay does not touch.
func (b *Binary) buildIndexes() {
	b.sceneIndex = make(map[string]int, len(b.Scenes))
	for i, s := range b.Scenes {
		if int(s.Symbol) < len(b.StringTable) {
			b.sceneIndex[b.StringTable[s.Symbol]] = i
		}
	}
	b.functionIndex = make(map[string]int, len(b.Functions))
	for i, f := range b.Functions {
		if int(f.Symbol) < len(b.StringTable) {
			b.functionIndex[b.StringTable[f.Symbol]] = i
		}
	}
	b.definitionIndex = make(map[string]int, len(b.Definitions))
	for i, d := range b.Definitions {
		if int(d.Symbol) < len(b.StringTable) {
			b.definitionIndex[b.StringTable[d.Symbol]] = i
		}
	}
	b.buildExternalFunctionIndex()
}
