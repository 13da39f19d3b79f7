package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/funvibe/clox/internal/asm"
	"github.com/funvibe/clox/internal/config"
	"github.com/funvibe/clox/internal/image"
	"github.com/funvibe/clox/internal/vm"
	"github.com/mattn/go-isatty"
	"github.com/tliron/commonlog"

	_ "github.com/tliron/commonlog/simple"
)

const usage = `Usage: clox <command> [arguments]

Commands:
  run <file> [--trace]        Run a listing (.yaml) or image (.cloxb)
  disasm <file>               Print the disassembly of a listing or image
  build <listing> [-o <out>]  Assemble a listing into an image
  version                     Print the version
  help                        Show this message

A bare file argument is the same as "run". Add --verbose (repeatable) for logs.
`

// options collects the flags shared by all commands
type options struct {
	trace     bool
	output    string
	verbosity int
	settings  *config.Settings
}

// Run is the process entry point
func Run() {
	os.Exit(Main(os.Args[1:], os.Stdout, os.Stderr))
}

// Main runs one clox command and returns the process exit code
func Main(args []string, stdout, stderr io.Writer) int {
	opts, rest, err := parseArgs(args)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n\n%s", err, usage)
		return config.ExitUsage
	}

	if err := loadSettings(opts); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return config.ExitUsage
	}
	commonlog.Configure(opts.verbosity+opts.settings.Verbosity, nil)
	log := commonlog.GetLogger("clox.cli")

	if len(rest) == 0 {
		fmt.Fprint(stderr, usage)
		return config.ExitUsage
	}

	command, files := rest[0], rest[1:]
	switch command {
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usage)
		return config.ExitOK
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "clox %s\n", config.Version)
		return config.ExitOK
	case "run", "disasm", "build":
	default:
		// clox <file>
		command, files = "run", rest
	}

	if len(files) != 1 {
		fmt.Fprintf(stderr, "Error: %s expects exactly one file\n\n%s", command, usage)
		return config.ExitUsage
	}
	path := files[0]
	log.Debugf("%s %s", command, path)

	switch command {
	case "build":
		return handleBuild(path, opts, stdout, stderr)
	case "disasm":
		return handleDisasm(path, stdout, stderr)
	default:
		return handleRun(path, opts, stdout, stderr)
	}
}

func parseArgs(args []string) (*options, []string, error) {
	opts := &options{}
	var rest []string

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-t", "-trace", "--trace":
			opts.trace = true
		case "--verbose":
			opts.verbosity++
		case "-o", "--output":
			if i+1 >= len(args) {
				return nil, nil, fmt.Errorf("%s requires a path", arg)
			}
			i++
			opts.output = args[i]
		default:
			if strings.HasPrefix(arg, "-") && !isCommandFlag(arg) {
				return nil, nil, fmt.Errorf("unknown flag %s", arg)
			}
			rest = append(rest, arg)
		}
	}
	return opts, rest, nil
}

// isCommandFlag reports flags that act as commands (help, version)
func isCommandFlag(arg string) bool {
	switch arg {
	case "-h", "-help", "--help", "-version", "--version":
		return true
	}
	return false
}

func loadSettings(opts *options) error {
	opts.settings = config.DefaultSettings()

	wd, err := os.Getwd()
	if err != nil {
		return nil
	}
	path, err := config.FindSettings(wd)
	if err != nil || path == "" {
		return err
	}
	s, err := config.LoadSettings(path)
	if err != nil {
		return err
	}
	opts.settings = s
	return nil
}

// loadChunk reads a listing or an image. Listings are assembled, images
// are decoded and validated.
func loadChunk(path string) (*vm.Chunk, string, error) {
	switch {
	case config.IsImageFile(path):
		img, err := image.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		return img.Chunk, img.Name, nil
	case config.IsListingFile(path):
		return asm.Build(path)
	default:
		return nil, "", fmt.Errorf("%s: unrecognized file type (want %s or %s)",
			path, strings.Join(config.ListingFileExtensions, ", "), config.ImageFileExt)
	}
}

// loadFailure prints a load error and maps it to an exit code
func loadFailure(stderr io.Writer, err error) int {
	commonlog.GetLogger("clox.cli").Debugf("load failed: %s", err)
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		fmt.Fprintf(stderr, "Error reading input: %s\n", err)
		return config.ExitIOError
	}
	fmt.Fprintf(stderr, "Compile error: %s\n", err)
	return config.ExitCompileError
}

func handleRun(path string, opts *options, stdout, stderr io.Writer) int {
	chunk, _, err := loadChunk(path)
	if err != nil {
		return loadFailure(stderr, err)
	}

	machine := vm.New(chunk, opts.trace || opts.settings.Trace)
	machine.SetOutput(stdout)
	machine.SetTraceOutput(stderr)
	machine.SetTraceColor(useColor(opts.settings.Color, stderr))

	res, err := machine.Interpret()
	switch res {
	case vm.InterpretOk:
		return config.ExitOK
	case vm.InterpretCompileError:
		fmt.Fprintf(stderr, "Compile error: %s\n", err)
		return config.ExitCompileError
	default:
		fmt.Fprintf(stderr, "Runtime error: %s\n", err)
		return config.ExitRuntimeError
	}
}

func handleDisasm(path string, stdout, stderr io.Writer) int {
	chunk, name, err := loadChunk(path)
	if err != nil {
		return loadFailure(stderr, err)
	}
	if err := vm.DisassembleTo(stdout, chunk, name); err != nil {
		fmt.Fprintf(stderr, "Disassembly error: %s\n", err)
		return config.ExitCompileError
	}
	return config.ExitOK
}

func handleBuild(path string, opts *options, stdout, stderr io.Writer) int {
	if !config.IsListingFile(path) {
		fmt.Fprintf(stderr, "Error: build expects a listing (%s), got %s\n",
			strings.Join(config.ListingFileExtensions, ", "), path)
		return config.ExitUsage
	}

	chunk, name, err := asm.Build(path)
	if err != nil {
		return loadFailure(stderr, err)
	}
	if err := chunk.Validate(); err != nil {
		fmt.Fprintf(stderr, "Compile error: %s: %s\n", path, err)
		return config.ExitCompileError
	}

	out := opts.output
	if out == "" {
		out = config.TrimListingExt(path) + config.ImageFileExt
	}

	img := image.New(chunk, name)
	if err := image.WriteFile(out, img); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return config.ExitIOError
	}
	fmt.Fprintf(stdout, "wrote %s (%s)\n", out, img.ID)
	return config.ExitOK
}

// useColor resolves the color setting against the trace writer
func useColor(mode string, w io.Writer) bool {
	switch mode {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
