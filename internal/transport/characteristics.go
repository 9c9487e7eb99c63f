package transport

// Characteristic identifies a GATT characteristic by its canonical
// lower-case UUID string.
type Characteristic string

// Standard GATT characteristics the bulb exposes.
const (
	CharBatteryLevel     Characteristic = "00002a19-0000-1000-8000-00805f9b34fb"
	CharSerialNumber     Characteristic = "00002a25-0000-1000-8000-00805f9b34fb"
	CharFirmwareRevision Characteristic = "00002a26-0000-1000-8000-00805f9b34fb"
	CharHardwareRevision Characteristic = "00002a27-0000-1000-8000-00805f9b34fb"
	CharSoftwareRevision Characteristic = "00002a28-0000-1000-8000-00805f9b34fb"
	CharManufacturerName Characteristic = "00002a29-0000-1000-8000-00805f9b34fb"
	CharPnPID            Characteristic = "00002a50-0000-1000-8000-00805f9b34fb"

	// The firmware repurposes the heart-rate measurement characteristic
	// as its timer-fired notification channel.
	CharTimerNotification Characteristic = "00002a37-0000-1000-8000-00805f9b34fb"
)

// Vendor characteristics (0xFFF7-0xFFFF).
const (
	CharPIN           Characteristic = "0000fff7-0000-1000-8000-00805f9b34fb"
	CharTimerEffect   Characteristic = "0000fff8-0000-1000-8000-00805f9b34fb"
	CharSecurityMode  Characteristic = "0000fff9-0000-1000-8000-00805f9b34fb"
	CharEffect        Characteristic = "0000fffb-0000-1000-8000-00805f9b34fb"
	CharColor         Characteristic = "0000fffc-0000-1000-8000-00805f9b34fb"
	CharFactoryReset  Characteristic = "0000fffd-0000-1000-8000-00805f9b34fb"
	CharTimerSchedule Characteristic = "0000fffe-0000-1000-8000-00805f9b34fb"
	CharGivenName     Characteristic = "0000ffff-0000-1000-8000-00805f9b34fb"
)
