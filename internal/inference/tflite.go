package inference

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tphakala/go-tflite"

	pipeerrors "github.com/tphakala/denoise-pipeline/internal/errors"
)

// TFLiteFactory loads a model file once and builds one interpreter per
// worker, each sized to its own thread budget.
type TFLiteFactory struct {
	modelPath string

	mu    sync.Mutex
	model *tflite.Model
}

// NewTFLiteFactory reads the model artifact at modelPath. The model
// bytes are kept resident and shared read-only across interpreters;
// tflite.Model itself is safe for concurrent interpreter construction.
func NewTFLiteFactory(modelPath string) (*TFLiteFactory, error) {
	data, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, pipeerrors.New(err).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Context("model_path", modelPath).
			Build()
	}

	model := tflite.NewModel(data)
	if model == nil {
		return nil, pipeerrors.New(fmt.Errorf("failed to parse model file")).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Context("model_path", modelPath).
			Build()
	}

	return &TFLiteFactory{modelPath: modelPath, model: model}, nil
}

// New builds one interpreter with the given number of intra-op threads.
func (f *TFLiteFactory) New(threads int) (Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if threads < 1 {
		threads = 1
	}

	options := tflite.NewInterpreterOptions()
	options.SetNumThread(threads)
	options.SetErrorReporter(func(msg string, _ any) {
		fmt.Fprintf(os.Stderr, "tflite: %s\n", msg)
	}, nil)

	interpreter := tflite.NewInterpreter(f.model, options)
	if interpreter == nil {
		return nil, pipeerrors.New(fmt.Errorf("cannot create interpreter")).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Context("model_path", f.modelPath).
			Build()
	}
	if status := interpreter.AllocateTensors(); status != tflite.OK {
		return nil, pipeerrors.New(fmt.Errorf("tensor allocation failed")).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Context("model_path", f.modelPath).
			Build()
	}

	return &tfliteSession{interpreter: interpreter}, nil
}

type tfliteSession struct {
	interpreter *tflite.Interpreter
}

func (s *tfliteSession) Run(ctx context.Context, input []int16) ([]int16, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inTensor := s.interpreter.GetInputTensor(0)
	if inTensor == nil {
		return nil, pipeerrors.New(fmt.Errorf("model exposes no input tensor")).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Build()
	}
	copy(inTensor.Int16s(), input)

	if status := s.interpreter.Invoke(); status != tflite.OK {
		return nil, pipeerrors.New(fmt.Errorf("interpreter invoke failed with status %v", status)).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Build()
	}

	outTensor := s.interpreter.GetOutputTensor(0)
	if outTensor == nil {
		return nil, pipeerrors.New(fmt.Errorf("model exposes no output tensor")).
			Category(pipeerrors.CategoryInference).
			Component("inference").
			Build()
	}

	out := make([]int16, len(input))
	copy(out, outTensor.Int16s())
	return out, nil
}

func (s *tfliteSession) Close() error {
	s.interpreter.Delete()
	return nil
}
