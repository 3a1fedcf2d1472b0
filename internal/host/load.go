package host

import (
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/dshills/retrofit/internal/il"
)

type imageFile struct {
	Types []typeDecl `yaml:"types"`
}

type typeDecl struct {
	Name    string       `yaml:"name"`
	Fields  []string     `yaml:"fields"`
	Methods []methodDecl `yaml:"methods"`
}

type methodDecl struct {
	Name    string      `yaml:"name"`
	Static  bool        `yaml:"static"`
	Params  []paramDecl `yaml:"params"`
	Returns string      `yaml:"returns"`
	Locals  []paramDecl `yaml:"locals"`
	Body    string      `yaml:"body"`
}

type paramDecl struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadImage reads and parses an image file.
func LoadImage(path string, natives Natives) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read image %s", path)
	}
	img, err := ParseImage(data, natives)
	if err != nil {
		return nil, errors.Wrapf(err, "image %s", path)
	}
	return img, nil
}

// ParseImage parses a YAML image description and assembles every body.
// Types are declared before bodies are assembled so newobj may reference any
// type in the file.
func ParseImage(data []byte, natives Natives) (*Image, error) {
	var file imageFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "parse image")
	}

	img := NewImage()
	ctors := make(map[string]*il.Ctor, len(file.Types))
	for _, td := range file.Types {
		if td.Name == "" {
			return nil, errors.Wrap(ErrSyntax, "type without a name")
		}
		if _, dup := img.types[td.Name]; dup {
			return nil, errors.Wrapf(ErrSyntax, "type %q declared twice", td.Name)
		}
		t := &Type{Name: td.Name, Fields: td.Fields}
		img.AddType(t)
		ctors[td.Name] = t.Ctor()
	}

	asm := NewAssembler(natives, ctors)
	for _, td := range file.Types {
		for _, md := range td.Methods {
			m := &il.Method{
				DeclaringType: td.Name,
				Name:          md.Name,
				Static:        md.Static,
				Returns:       md.Returns,
			}
			for _, p := range md.Params {
				m.Params = append(m.Params, il.Param(p))
			}
			for _, l := range md.Locals {
				m.Locals = append(m.Locals, il.Local(l))
			}
			body, err := asm.Assemble(md.Body)
			if err != nil {
				return nil, errors.Wrapf(err, "assemble %s", m.FullName())
			}
			m.Body = body
			img.AddMethod(m)
		}
	}
	return img, nil
}
