package oltpbench

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

var (
	Commands = map[string]bool{
		"load":  true,
		"run":   true,
		"shell": true,
	}

	ProgramName = filepath.Base(os.Args[0])
	// Where the report and other command output go, stdout unless -s is given.
	OutputDest io.Writer = os.Stdout
)

type Arguments struct {
	Command  string
	Database string
	// Print the report to stderr instead of stdout.
	Status   bool
	LogLevel LogLevelType
	Properties
}

func Usage(w io.Writer) {
	usageFormat := `usage: %s command database [options]

Commands:
  load               Load the reference identifiers and describe them
  run                Execute the workload and print the summary
  shell              Interactive mode

Databases:
%s
Options:
  -P, --property-file file   load properties from a YAML file
  -p, --property name=value  set a property value
  -s, --status               print the report to stderr
  -n, --iterations N         number of iterations (same as -p %s=N)
      --log-level level      verbose|debug|info|warn|error|quiet (default: info)
  -h, --help                 show this help message and exit

Workload Files:
  There are predefined workloads under workloads/ directory.`
	names := make([]string, 0, len(Databases))
	for name := range Databases {
		names = append(names, name)
	}
	sort.Strings(names)
	var databases string
	for _, name := range names {
		databases += "  " + name + "\n"
	}
	Foutput(w, usageFormat, ProgramName, databases, PropertyOperationCount)
}

// ParseArgs parses the command line arguments, without the program name.
// Properties are applied in order: property files, then -p values, then
// dedicated flags such as -n. It returns pflag.ErrHelp for -h.
func ParseArgs(argv []string) (*Arguments, error) {
	flags := pflag.NewFlagSet(ProgramName, pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	propertyFiles := flags.StringArrayP("property-file", "P", nil, "load properties from a YAML file")
	propertyValues := flags.StringArrayP("property", "p", nil, "set a property value")
	status := flags.BoolP("status", "s", false, "print the report to stderr")
	iterations := flags.Int64P("iterations", "n", 0, "number of iterations")
	logLevel := flags.String("log-level", "info", "log level")
	help := flags.BoolP("help", "h", false, "show this help message and exit")
	if err := flags.Parse(argv); err != nil {
		return nil, err
	}
	if *help {
		return nil, pflag.ErrHelp
	}

	positional := flags.Args()
	if len(positional) < 2 {
		return nil, errors.New("no enough argument")
	}
	if len(positional) > 2 {
		return nil, fmt.Errorf("unexpected argument: %s", positional[2])
	}
	command := positional[0]
	if _, ok := Commands[command]; !ok {
		return nil, fmt.Errorf("unsupported command: %s", command)
	}
	database := positional[1]
	if _, ok := Databases[database]; !ok {
		return nil, fmt.Errorf("unsupported database: %s", database)
	}
	level, err := ParseLogLevel(*logLevel)
	if err != nil {
		return nil, err
	}

	props := NewProperties()
	props.Add(PropertyDB, database)
	for _, file := range *propertyFiles {
		propsFromFile, err := LoadProperties(file)
		if err != nil {
			return nil, fmt.Errorf("load property file %s: %w", file, err)
		}
		props.Merge(propsFromFile)
	}
	for _, arg := range *propertyValues {
		// it's a property, should be in `k=v` form
		parts := strings.SplitN(arg, "=", 2)
		if len(parts) != 2 || len(parts[0]) == 0 {
			return nil, fmt.Errorf("invalid property: %s", arg)
		}
		props.Add(parts[0], parts[1])
	}
	if flags.Changed("iterations") {
		if *iterations < 0 {
			return nil, fmt.Errorf("invalid iterations: %d", *iterations)
		}
		props.Add(PropertyOperationCount, strconv.FormatInt(*iterations, 10))
	}
	return &Arguments{
		Command:    command,
		Database:   database,
		Status:     *status,
		LogLevel:   level,
		Properties: props,
	}, nil
}

func Main() {
	args, err := ParseArgs(os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		Usage(os.Stdout)
		os.Exit(0)
	}
	if err != nil {
		Usage(os.Stderr)
		ExitOnError("%s", err)
	}
	SetLogLevel(args.LogLevel)
	defer Sync()
	if args.Status {
		OutputDest = os.Stderr
	}

	var client Client
	switch args.Command {
	case "shell":
		client = NewShell(args)
	case "load":
		client = NewLoader(args)
	case "run":
		client = NewRunner(args)
	default:
		ExitOnError("invalid command: %s", args.Command)
	}
	client.Main()
}
