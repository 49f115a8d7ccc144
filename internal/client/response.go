package client

import (
	"bodyscan-go/pkg/models"
)

// scanResponse принимает и форму ScanResult, и плоскую
// форму measurements / body_composition / mesh_vertices.
type scanResponse struct {
	Circumferences  []models.CircumferenceResult  `json:"circumferences"`
	Composition     *models.BodyCompositionResult `json:"composition"`
	Lengths         *models.BodyLengths           `json:"lengths"`
	ConfidenceScore *float64                      `json:"confidence_score"`
	ScanTier        models.ScanTier               `json:"scan_tier"`
	Mesh            *models.Mesh                  `json:"mesh"`
	Warnings        []string                      `json:"warnings"`

	Measurements    map[string]float64            `json:"measurements"`
	BodyComposition *models.BodyCompositionResult `json:"body_composition"`
	Confidence      *float64                      `json:"confidence"`
	MeshVertices    [][]float64                   `json:"mesh_vertices"`
	MeshFaces       [][]int                       `json:"mesh_faces"`
}

func (r *scanResponse) toResult() *models.ScanResult {
	result := &models.ScanResult{
		Circumferences: r.Circumferences,
		Lengths:        r.Lengths,
		ScanTier:       r.ScanTier,
		Mesh:           r.Mesh,
		Warnings:       r.Warnings,
	}

	switch {
	case r.ConfidenceScore != nil:
		result.ConfidenceScore = *r.ConfidenceScore
	case r.Confidence != nil:
		result.ConfidenceScore = *r.Confidence
	}

	switch {
	case r.Composition != nil:
		result.Composition = *r.Composition
	case r.BodyComposition != nil:
		result.Composition = *r.BodyComposition
	}

	if len(result.Circumferences) == 0 && len(r.Measurements) > 0 {
		for _, region := range models.AllRegions {
			v, ok := r.Measurements[string(region)+"_cm"]
			if !ok || v <= 0 {
				continue
			}
			result.Circumferences = append(result.Circumferences, models.CircumferenceResult{
				Region:          region,
				CircumferenceCm: v,
				Confidence:      result.ConfidenceScore,
			})
		}
	}

	if result.Lengths == nil {
		result.Lengths = lengthsFrom(r.Measurements)
	}

	if result.Mesh == nil && len(r.MeshVertices) > 0 {
		result.Mesh = &models.Mesh{Vertices: r.MeshVertices, Faces: r.MeshFaces}
	}
	if result.ScanTier == "" {
		result.ScanTier = models.TierPhoto
	}
	return result
}

// lengthsFrom достает линейные размеры из плоской карты measurements
func lengthsFrom(m map[string]float64) *models.BodyLengths {
	lengths := models.BodyLengths{
		HeightCm:        m["height_cm"],
		ArmSpanCm:       m["arm_span_cm"],
		ShoulderWidthCm: m["shoulder_width_cm"],
		TorsoLengthCm:   m["torso_length_cm"],
		InseamCm:        m["inseam_cm"],
	}
	if lengths == (models.BodyLengths{}) {
		return nil
	}
	return &lengths
}
