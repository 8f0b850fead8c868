package detector

import (
	"context"
	"errors"
	"fmt"

	"github.com/Trendyol/go-triton-client/base"
	tritonGrpc "github.com/Trendyol/go-triton-client/client/grpc"

	"headwatch/internal/config"
)

const (
	frameInputName      = "FRAME"
	detectionOutputName = "DETECTIONS"
)

// TritonBackend runs the detection model on a Triton inference server. The
// model takes a FRAME uint8 tensor of shape [H, W, 3] and returns DETECTIONS
// as rows of [x1, y1, x2, y2, confidence, class_id].
type TritonBackend struct {
	cli          base.Client
	modelName    string
	modelVersion string
}

func NewTritonBackend(conf config.DetectorConfig) (*TritonBackend, error) {
	tritonCli, err := tritonGrpc.NewClient(
		conf.ServerAddr,
		false, // verbose logging
		30,    // connection timeout in seconds
		30,    // network timeout in seconds
		false, // use ssl
		true,  // insecure connection
		nil,   // existing grpc connection
		nil,   // logger
	)
	if err != nil {
		return nil, fmt.Errorf("create triton client: %w", err)
	}

	version := conf.ModelVersion
	if version == "" {
		version = "1"
	}
	return &TritonBackend{
		cli:          tritonCli,
		modelName:    conf.ModelName,
		modelVersion: version,
	}, nil
}

func (b *TritonBackend) Ready(ctx context.Context) error {
	if isLive, err := b.cli.IsServerLive(ctx, nil); err != nil {
		return err
	} else if !isLive {
		return errors.New("triton server is not live")
	}

	if isReady, err := b.cli.IsServerReady(ctx, nil); err != nil {
		return err
	} else if !isReady {
		return errors.New("triton server is not ready")
	}

	if isReady, err := b.cli.IsModelReady(ctx, b.modelName, b.modelVersion, nil); err != nil {
		return err
	} else if !isReady {
		return fmt.Errorf("triton model %s is not ready", b.modelName)
	}
	return nil
}

func (b *TritonBackend) Infer(ctx context.Context, frame *Frame) ([]float32, error) {
	frameInput := tritonGrpc.NewInferInput(frameInputName, "BYTES",
		[]int64{int64(frame.Height), int64(frame.Width), 3}, nil)
	if err := frameInput.SetData(frame.Data, true); err != nil {
		return nil, fmt.Errorf("failed to set FRAME input data: %v", err)
	}
	frameInput.SetDatatype("UINT8")

	outputs := []base.InferOutput{
		tritonGrpc.NewInferOutput(detectionOutputName, map[string]any{"binary_data": false}),
	}

	response, err := b.cli.Infer(ctx, b.modelName, b.modelVersion,
		[]base.InferInput{frameInput}, outputs, nil)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %v", err)
	}

	detections, err := response.AsFloat32Slice(detectionOutputName)
	if err != nil {
		return nil, fmt.Errorf("failed to get detection data: %v", err)
	}
	return detections, nil
}
