package models

// Sex пол пользователя
type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

// Subject данные пользователя, вводимые на шаге калибровки
type Subject struct {
	HeightCm float64 `json:"height_cm" validate:"required,gte=100,lte=250"`
	WeightKg float64 `json:"weight_kg" validate:"required,gte=30,lte=300"`
	Age      int     `json:"age" validate:"required,gte=13,lte=120"`
	Sex      Sex     `json:"sex" validate:"required,oneof=male female"`
}

// CalibrationData масштаб в пикселях, полученный из известного роста
type CalibrationData struct {
	HeightCm    float64 `json:"height_cm"`
	WeightKg    float64 `json:"weight_kg"`
	Age         int     `json:"age"`
	Sex         Sex     `json:"sex"`
	PixelsPerCm float64 `json:"pixels_per_cm"`
	ImageWidth  int     `json:"image_width"`
	ImageHeight int     `json:"image_height"`
}

// Subject возвращает данные, для которых сделана калибровка
func (c CalibrationData) Subject() Subject {
	return Subject{HeightCm: c.HeightCm, WeightKg: c.WeightKg, Age: c.Age, Sex: c.Sex}
}

// View ракурс съемки
type View string

const (
	FrontView View = "front"
	SideView  View = "side"
)

// Mask бинарная маска тела, ненулевое значение = тело, построчно
type Mask struct {
	Width  int     `json:"width"`
	Height int     `json:"height"`
	Data   []uint8 `json:"-"`
}

// At проверяет, принадлежит ли пиксель (x, y) телу. Вне границ всегда фон.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Data[y*m.Width+x] != 0
}

// SilhouetteWidth замер одной строки сканирования для зоны в одном ракурсе
type SilhouetteWidth struct {
	Region      MeasurementRegion `json:"region"`
	YPosition   int               `json:"y_position"`
	LeftEdge    int               `json:"left_edge"`
	RightEdge   int               `json:"right_edge"`
	WidthPixels float64           `json:"width_pixels"`
}

// RegionWidths фронтальная ширина и сагиттальная глубина зоны в сантиметрах
type RegionWidths struct {
	FrontalCm  float64 `json:"frontal_cm"`
	SagittalCm float64 `json:"sagittal_cm"`
}

// CircumferenceResult оценка обхвата одной зоны
type CircumferenceResult struct {
	Region          MeasurementRegion `json:"region"`
	CircumferenceCm float64           `json:"circumference_cm"`
	FrontalWidthCm  float64           `json:"frontal_width_cm"`
	SagittalDepthCm float64           `json:"sagittal_depth_cm"`
	Confidence      float64           `json:"confidence"`
}

// BodyCompositionResult оценка процента жира и массы
type BodyCompositionResult struct {
	BodyFatPct    float64 `json:"body_fat_pct"`
	BodyFatNavy   float64 `json:"body_fat_navy"`
	BodyFatCunbae float64 `json:"body_fat_cunbae"`
	LeanMassKg    float64 `json:"lean_mass_kg"`
	FatMassKg     float64 `json:"fat_mass_kg"`
	BMI           float64 `json:"bmi"`
	WaistHipRatio float64 `json:"waist_hip_ratio"`
	Method        string  `json:"method,omitempty"`
}

// ScanTier каким способом съемки получен результат
type ScanTier string

const (
	TierPhoto ScanTier = "photo"
	TierLidar ScanTier = "lidar"
)

// Mesh необязательная 3D сетка от удаленного сервиса
type Mesh struct {
	Vertices [][]float64 `json:"vertices"`
	Faces    [][]int     `json:"faces"`
}

// BodyLengths линейные размеры тела в сантиметрах, ноль если не измерено
type BodyLengths struct {
	HeightCm        float64 `json:"height_cm"`
	ArmSpanCm       float64 `json:"arm_span_cm"`
	ShoulderWidthCm float64 `json:"shoulder_width_cm"`
	TorsoLengthCm   float64 `json:"torso_length_cm"`
	InseamCm        float64 `json:"inseam_cm"`
}

// ScanResult итог одной попытки сканирования
type ScanResult struct {
	Circumferences   []CircumferenceResult `json:"circumferences"`
	Composition      BodyCompositionResult `json:"composition"`
	Lengths          *BodyLengths          `json:"lengths,omitempty"`
	ConfidenceScore  float64               `json:"confidence_score"`
	RegionConfidence float64               `json:"region_confidence,omitempty"`
	ScanTier         ScanTier              `json:"scan_tier,omitempty"`
	Mesh             *Mesh                 `json:"mesh,omitempty"`
	Warnings         []string              `json:"warnings,omitempty"`
}

// Circumference возвращает результат зоны, если она измерена
func (r *ScanResult) Circumference(region MeasurementRegion) (CircumferenceResult, bool) {
	for _, c := range r.Circumferences {
		if c.Region == region {
			return c, true
		}
	}
	return CircumferenceResult{}, false
}

// HealthResponse ответ проверки здоровья
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	GPU         bool   `json:"gpu_available"`
	Mode        string `json:"mode,omitempty"`
	Version     string `json:"version"`
}
