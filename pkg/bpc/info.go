package bpc

// DeviceInfo describes the receiver module the driver is written for.
type DeviceInfo struct {
	ChipName         string  `json:"chipName"`
	ManufacturerName string  `json:"manufacturerName"`
	Interface        string  `json:"interface"`
	SupplyVoltageMin float32 `json:"supplyVoltageMin"`
	SupplyVoltageMax float32 `json:"supplyVoltageMax"`
	MaxCurrent       float32 `json:"maxCurrent"`
	TemperatureMin   float32 `json:"temperatureMin"`
	TemperatureMax   float32 `json:"temperatureMax"`
	// DriverVersion is major*1000 + minor*100.
	DriverVersion uint32 `json:"driverVersion"`
}

var info = DeviceInfo{
	ChipName:         "China BPC",
	ManufacturerName: "China",
	Interface:        "GPIO",
	SupplyVoltageMin: 2.7,
	SupplyVoltageMax: 5.5,
	MaxCurrent:       1.5,
	TemperatureMin:   -40.0,
	TemperatureMax:   125.0,
	DriverVersion:    1000,
}

// Info returns the static device information.
func Info() DeviceInfo {
	return info
}
