package entity

// BBox is the axis-aligned extent of a detection in page pixels.
type BBox struct {
	X0, Y0, X1, Y1 float64
}

// OcrToken is one recognized text fragment. It is never mutated after the OCR
// collaborator produces it.
type OcrToken struct {
	BBox       BBox    `json:"bbox"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Page       int     `json:"page"`
}

func (t OcrToken) XCenter() float64 { return (t.BBox.X0 + t.BBox.X1) / 2 }
func (t OcrToken) YCenter() float64 { return (t.BBox.Y0 + t.BBox.Y1) / 2 }

// MeanConfidence averages token confidences; zero when there are no tokens.
func MeanConfidence(tokens []OcrToken) float64 {
	if len(tokens) == 0 {
		return 0
	}
	var sum float64
	for _, t := range tokens {
		sum += t.Confidence
	}
	return sum / float64(len(tokens))
}
