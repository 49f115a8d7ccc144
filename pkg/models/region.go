package models

// MeasurementRegion анатомическая зона обхвата
type MeasurementRegion string

const (
	RegionNeck         MeasurementRegion = "neck"
	RegionShoulders    MeasurementRegion = "shoulders"
	RegionChest        MeasurementRegion = "chest"
	RegionLeftBicep    MeasurementRegion = "left_bicep"
	RegionRightBicep   MeasurementRegion = "right_bicep"
	RegionLeftForearm  MeasurementRegion = "left_forearm"
	RegionRightForearm MeasurementRegion = "right_forearm"
	RegionWrist        MeasurementRegion = "wrist"
	RegionWaist        MeasurementRegion = "waist"
	RegionHips         MeasurementRegion = "hips"
	RegionLeftThigh    MeasurementRegion = "left_thigh"
	RegionRightThigh   MeasurementRegion = "right_thigh"
	RegionLeftCalf     MeasurementRegion = "left_calf"
	RegionRightCalf    MeasurementRegion = "right_calf"
)

// AllRegions все зоны в порядке вывода
var AllRegions = []MeasurementRegion{
	RegionNeck, RegionShoulders, RegionChest,
	RegionLeftBicep, RegionRightBicep, RegionLeftForearm, RegionRightForearm, RegionWrist,
	RegionWaist, RegionHips,
	RegionLeftThigh, RegionRightThigh, RegionLeftCalf, RegionRightCalf,
}

// RegionCount количество зон
var RegionCount = len(AllRegions)

// Valid проверяет, что r одна из известных зон
func (r MeasurementRegion) Valid() bool {
	for _, known := range AllRegions {
		if r == known {
			return true
		}
	}
	return false
}
