package heatpump

import "fmt"

// ShowUnitInfo connects to the unit and prints its running state in a
// formatted block.
func ShowUnitInfo(address string) error {
	if address == "" {
		return fmt.Errorf("heat pump modbus address is not configured")
	}

	client, err := NewTCPClient(address, DefaultSlaveID)
	if err != nil {
		return fmt.Errorf("error connecting to heat pump at %s: %w", address, err)
	}
	defer client.Close()

	status, err := client.ReadUnitStatus()
	if err != nil {
		return fmt.Errorf("error reading unit status: %w", err)
	}

	fmt.Println()
	fmt.Println("==================== HEAT PUMP UNIT STATUS ====================")
	fmt.Println()
	fmt.Println("TEMPERATURES")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("  Outdoor Temperature:        %6.1f °C\n", status.OutdoorTemp)
	fmt.Printf("  Supply (Leaving Water):     %6.1f °C\n", status.SupplyTemp)
	fmt.Printf("  Return Water:               %6.1f °C\n", status.ReturnTemp)
	fmt.Printf("  Flow Rate:                  %6.1f l/min\n", status.FlowRate)
	fmt.Println()
	fmt.Println("COMPRESSOR")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("  Operating Mode:             %s\n", operatingModeString(status.OperatingMode))
	fmt.Printf("  Compressor Frequency:       %6.0f Hz\n", status.CompressorFreq)
	fmt.Printf("  Defrost Active:             %v\n", status.DefrostActive)
	fmt.Printf("  Power Draw:                 %6.3f kW\n", status.PowerDraw)
	fmt.Println()
	fmt.Println("CONTROL")
	fmt.Println("--------------------------------------------------")
	fmt.Printf("  Heating Curve Offset:       %+d °C\n", status.CurveOffset)
	fmt.Println()

	return nil
}

func operatingModeString(mode uint16) string {
	switch mode {
	case 0:
		return "Standby"
	case 1:
		return "Heating"
	case 2:
		return "Cooling"
	case 3:
		return "Domestic Hot Water"
	default:
		return fmt.Sprintf("Unknown (%d)", mode)
	}
}
