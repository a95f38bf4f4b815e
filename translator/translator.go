// Package translator converts ESSL 3.00 shader sources to the dialect of the current
// context and reports the names the translator gave to each uniform.
package translator

import (
	"context"
	"fmt"
	"sync"

	gst "github.com/richinsley/goshadertranslator"
)

// Shader is a translated shader stage.
type Shader struct {
	Code string
	// Names maps a declared identifier to the name used in Code.
	Names map[string]string
}

// Name returns the translated name of a declared identifier, or the identifier itself
// when the translator left it untouched.
func (s *Shader) Name(declared string) string {
	if s == nil || s.Names == nil {
		return declared
	}
	if mapped, ok := s.Names[declared]; ok && mapped != "" {
		return mapped
	}
	return declared
}

// Translator translates one shader stage ("vertex" or "fragment").
type Translator interface {
	Translate(source, stage string, gles bool) (*Shader, error)
}

var (
	translator     *gst.ShaderTranslator
	translatorErr  error
	translatorOnce sync.Once
)

// ANGLE is the goshadertranslator backed Translator. The underlying translator is
// created lazily and shared by the process.
type ANGLE struct{}

func (ANGLE) Translate(source, stage string, gles bool) (*Shader, error) {
	translatorOnce.Do(func() {
		translator, translatorErr = gst.NewShaderTranslator(context.Background())
	})
	if translatorErr != nil {
		return nil, fmt.Errorf("failed to create shader translator: %w", translatorErr)
	}

	outputFormat := gst.OutputFormatGLSL410
	if gles {
		outputFormat = gst.OutputFormatESSL
	}
	out, err := translator.TranslateShader(source, stage, gst.ShaderSpecWebGL2, outputFormat)
	if err != nil {
		return nil, fmt.Errorf("%s shader translation failed: %w", stage, err)
	}
	names := make(map[string]string, len(out.Variables))
	for name, v := range out.Variables {
		names[name] = v.MappedName
	}
	return &Shader{Code: out.Code, Names: names}, nil
}

// Passthrough returns sources unchanged. It is used where the source is already in the
// target dialect, and by tests.
type Passthrough struct{}

func (Passthrough) Translate(source, stage string, gles bool) (*Shader, error) {
	return &Shader{Code: source}, nil
}
