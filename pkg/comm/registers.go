package comm

// Data registers decoded by the driver.
const (
	RegHealth        byte = 0x55
	RegGyroProcX     byte = 0x61
	RegGyroProcY     byte = 0x62
	RegGyroProcZ     byte = 0x63
	RegEulerPhiTheta byte = 0x70

	// RegFirmwareRevision is where the sensor answers CmdGetFirmwareRevision.
	RegFirmwareRevision = byte(CmdGetFirmwareRevision)
)
