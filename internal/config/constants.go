package config

// ToolName is reported in provenance headers and the CLI.
const ToolName = "diffsmith"

// Version is the tool version. It is overridden at link time by release builds.
var Version = "0.3.0"

// SourceFileExt is the extension of emitted programs.
const SourceFileExt = ".cs"

// Names emitted into every generated program.
const (
	EntryFuncName      = "M0"
	MainFuncName       = "Main"
	ProgramClassName   = "Program"
	RuntimeFieldName   = "s_rt"
	RuntimeIfaceName   = "IRuntime"
	RuntimeClassName   = "Runtime"
	ChecksumMethodName = "Checksum"
	ChecksumSitePrefix = "c_"
	ConsoleWriteLine   = "System.Console.WriteLine"
)

// Identifier prefixes for generated declarations.
const (
	FuncPrefix      = "M"
	StructPrefix    = "S"
	ClassPrefix     = "C"
	InterfacePrefix = "I"
	FieldPrefix     = "F"
	StaticPrefix    = "s_"
	LocalPrefix     = "var"
	ParamPrefix     = "arg"
	LoopVarPrefix   = "i"
	ThisName        = "this"
)

// Seed tags enable optional language features.
const (
	TagVectors = "vectors"
	TagUnsafe  = "unsafe"
)

// Environment variables read by the CLI.
const (
	EnvConfig      = "DIFFSMITH_CONFIG"
	EnvDatabase    = "DIFFSMITH_DB"
	EnvWorkers     = "DIFFSMITH_WORKERS"
	EnvTimeout     = "DIFFSMITH_TIMEOUT_MS"
	EnvLogLevel    = "DIFFSMITH_LOG_LEVEL"
	EnvOracle      = "DIFFSMITH_ORACLE"
	EnvCompiler    = "DIFFSMITH_COMPILER"
	EnvRemote      = "DIFFSMITH_REMOTE"
	EnvNoColor     = "NO_COLOR"
	DefaultDBFile  = "diffsmith.db"
	DefaultWorkers = 4
)
