//go:build gocv
// +build gocv

package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"signserver/internal/config"
	"signserver/internal/logger"
	"signserver/internal/models"
)

// DetectorService runs a YOLOv8 ONNX network through the OpenCV DNN
// backend. The network itself is not goroutine-safe, so a mutex
// serializes inference.
type DetectorService struct {
	net        gocv.Net
	params     gocv.ImageToBlobParams
	classNames []string
	inputSize  int
	iou        float64
	ready      bool
	mu         sync.Mutex
	logger     *logger.Logger
}

// NewDetectorService loads the network and class names. A missing or
// broken model leaves the service in place with Ready() == false so the
// rest of the app keeps working.
func NewDetectorService(cfg *config.Config, logger *logger.Logger) *DetectorService {
	service := &DetectorService{
		classNames: LoadClassNames(cfg.ClassNamesPath, logger),
		inputSize:  cfg.InputSize,
		iou:        cfg.IOUThreshold,
		logger:     logger,
	}

	if err := service.initializeNet(cfg.ModelPath); err != nil {
		service.logger.Warning("Could not initialize detection network: %v", err)
		return service
	}

	return service
}

// initializeNet loads the ONNX model and prepares the letterboxing blob
// parameters used for every inference.
func (s *DetectorService) initializeNet(modelPath string) error {
	if _, err := os.Stat(modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", modelPath)
	}

	net := gocv.ReadNetFromONNX(modelPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.params = gocv.NewImageToBlobParams(
		1.0/255.0,
		image.Pt(s.inputSize, s.inputSize),
		gocv.NewScalar(0, 0, 0, 0),
		true,
		gocv.MatTypeCV32F,
		gocv.DataLayoutNCHW,
		gocv.PaddingModeLetterbox,
		gocv.NewScalar(114, 114, 114, 0),
	)
	s.ready = true
	s.logger.Info("Detection network initialized from %s (%d classes)", modelPath, len(s.classNames))
	return nil
}

// Ready reports whether the network is loaded.
func (s *DetectorService) Ready() bool {
	return s.ready
}

// Warmup runs one forward pass on a blank image so the first user request
// does not pay the lazy initialization cost.
func (s *DetectorService) Warmup() error {
	if !s.ready {
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blank := gocv.NewMatWithSize(s.inputSize, s.inputSize, gocv.MatTypeCV8UC3)
	defer blank.Close()

	blob := gocv.BlobFromImageWithParams(blank, s.params)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	s.logger.Info("Detection network warmed up")
	return nil
}

// Detect runs the network on an encoded image and returns the detections
// whose class score is at least confidence, after non-maximum suppression.
// Box coordinates are mapped back to the original image and clipped.
func (s *DetectorService) Detect(ctx context.Context, imageBytes []byte, confidence float64) ([]models.Detection, error) {
	if !s.ready {
		return nil, ErrUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	blob := gocv.BlobFromImageWithParams(mat, s.params)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	// Ultralytics exports are [1, 4+C, N]; transpose to one row per box.
	gocv.TransposeND(output, []int{0, 2, 1}, &output)

	detections := s.decodeOutput(output, float32(confidence), image.Pt(mat.Cols(), mat.Rows()))
	return detections, nil
}

// decodeOutput walks the transposed output rows, keeps boxes whose best
// class score passes the threshold, suppresses overlaps and maps the
// survivors back into image coordinates.
func (s *DetectorService) decodeOutput(output gocv.Mat, confidence float32, imageSize image.Point) []models.Detection {
	output2d := output.Reshape(1, output.Size()[1])
	defer output2d.Close()

	cols := output2d.Cols()

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < output2d.Rows(); i++ {
		row := output2d.RowRange(i, i+1)
		classScores := row.ColRange(4, cols)

		_, score, _, classLoc := gocv.MinMaxLoc(classScores)
		classScores.Close()

		if score >= confidence {
			// Rows carry the box center and dimensions in blob coordinates.
			x := int(row.GetFloatAt(0, 0))
			y := int(row.GetFloatAt(0, 1))
			halfW := int(row.GetFloatAt(0, 2) / 2.0)
			halfH := int(row.GetFloatAt(0, 3) / 2.0)

			boxes = append(boxes, image.Rect(x-halfW, y-halfH, x+halfW, y+halfH))
			scores = append(scores, score)
			classIDs = append(classIDs, classLoc.X)
		}
		row.Close()
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, confidence, float32(s.iou))
	if len(indices) == 0 {
		return nil
	}

	kept := make([]image.Rectangle, len(indices))
	for i, j := range indices {
		kept[i] = boxes[j]
	}
	kept = s.params.BlobRectsToImageRects(kept, imageSize)

	bounds := image.Rect(0, 0, imageSize.X, imageSize.Y)
	detections := make([]models.Detection, 0, len(indices))
	for i, j := range indices {
		rect := kept[i].Intersect(bounds)
		if rect.Empty() {
			continue
		}

		detections = append(detections, models.Detection{
			Label:      ClassName(s.classNames, classIDs[j]),
			Confidence: float64(scores[j]),
			X:          rect.Min.X,
			Y:          rect.Min.Y,
			Width:      rect.Dx(),
			Height:     rect.Dy(),
		})
	}

	return detections
}

// Close releases the network.
func (s *DetectorService) Close() {
	if s.ready {
		s.net.Close()
		s.ready = false
	}
}
