package livedata

// Placeholder label for keys missing in the table.
const UnknownLabel = "-"

var labels = map[string]string{
	"fls": "Front Left Motor Speed",
	"fla": "Front Left Motor Current",
	"fle": "Front Left Motor Error",
	"frs": "Front Right Motor Speed",
	"fra": "Front Right Motor Current",
	"fre": "Front Right Motor Error",
	"fbv": "Front Voltage",
	"fbt": "Front Temperature",
	"bls": "Back Left Speed",
	"bla": "Back Left Current",
	"ble": "Back Left Error",
	"brs": "Back Right Speed",
	"bra": "Back Right Current",
	"bre": "Back Right Error",
	"bbv": "Back Voltage",
	"bbt": "Back Temperature",
	"pcg": "Gas",
	"pcb": "Brems",
	"prg": "Raw Gas",
	"prb": "Raw Brems",
	"mdr": "Meters driven now",
	"mdt": "Meters driven total",
	"bap": "Battery Percentage",
	"kml": "Calculated Kilometers Left",
	"ekm": "Estimated Kilometers Left",
	"whl": "Wh left",
	"cdt": "Driving Time",
	"loc": "Is locked?",
	"sha": "Git Hash",
	"upt": "Uptime",
	"bav": "Battery Average Voltage",
	"pwr": "Total Power",
	"per": "Driving Mode Performance",
}

func Label(key string) string {
	if l, ok := labels[key]; ok {
		return l
	}
	return UnknownLabel
}
