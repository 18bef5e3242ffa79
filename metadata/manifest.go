package metadata

import (
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/davidclayton/xlw/errors"
)

// manifest is the YAML form of a function list:
//
//	functions:
//	  - name: ADD
//	    help: Adds two numbers
//	    returns: double
//	    args:
//	      - {name: x, type: double, help: first addend}
type manifest struct {
	Functions []manifestFunction `yaml:"functions"`
}

type manifestFunction struct {
	Name    string        `yaml:"name"`
	Help    string        `yaml:"help"`
	Returns string        `yaml:"returns"`
	Args    []manifestArg `yaml:"args"`
}

type manifestArg struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Help string `yaml:"help"`
}

// LoadManifest parses a YAML function list. Argument and return types
// resolve through Lookup; an omitted return type means "oper".
func LoadManifest(r io.Reader) ([]FunctionDescription, error) {
	var m manifest
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errors.Load("parse manifest", err)
	}

	seen := make(map[string]bool, len(m.Functions))
	out := make([]FunctionDescription, 0, len(m.Functions))
	for i, f := range m.Functions {
		path := "functions[" + strconv.Itoa(i) + "]"
		if f.Name == "" {
			return nil, errors.InvalidData(errors.PhaseMetadata, []string{path}, "function name is required")
		}
		if seen[f.Name] {
			return nil, errors.InvalidData(errors.PhaseMetadata, []string{path}, "duplicate function "+f.Name)
		}
		seen[f.Name] = true

		returns := f.Returns
		if returns == "" {
			returns = "oper"
		}
		rt, err := Lookup(returns)
		if err != nil {
			return nil, withPath(err, f.Name, "returns")
		}

		args := make([]FunctionArgument, 0, len(f.Args))
		for j, a := range f.Args {
			at, err := Lookup(a.Type)
			if err != nil {
				return nil, withPath(err, f.Name, "args["+strconv.Itoa(j)+"]")
			}
			name := a.Name
			if name == "" {
				name = "arg" + strconv.Itoa(j+1)
			}
			args = append(args, NewFunctionArgument(at, name, a.Help))
		}
		out = append(out, NewFunctionDescription(f.Name, f.Help, rt.Identifier(), rt.ExcelKey(), args))
	}
	return out, nil
}

func withPath(err error, path ...string) error {
	if e, ok := err.(*errors.Error); ok {
		e.Path = path
	}
	return err
}
