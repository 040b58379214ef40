package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/ovheul/heatplan/heatcurve"
	"github.com/ovheul/heatplan/planner"
)

// Config represents the configuration for the heating planner service
type Config struct {
	// Planning settings
	HorizonSteps int           `json:"horizon_steps"` // DP horizon length
	StepHours    float64       `json:"step_hours"`    // planning step duration in hours
	PlanInterval time.Duration `json:"plan_interval"` // how often to re-plan
	DryRun       bool          `json:"dry_run"`       // simulate actuation without writing

	// Price API settings
	SecurityToken string        `json:"security_token"` // ENTSO-E API token
	APITimeout    time.Duration `json:"api_timeout"`    // timeout for API calls
	UrlFormat     string        `json:"url_format"`     // ENTSO-E API URL format string
	Location      string        `json:"location"`       // market timezone, e.g. "CET"

	// Consumer tariff
	EnergyTaxPerKWh float64 `json:"energy_tax_per_kwh"`
	MarkupPerKWh    float64 `json:"markup_per_kwh"`
	VATRate         float64 `json:"vat_rate"`
	FeedInPerKWh    float64 `json:"feed_in_per_kwh"` // 0 disables the production price

	// Weather API settings
	WeatherUpdateInterval time.Duration `json:"weather_update_interval"`
	Latitude              float64       `json:"latitude"`
	Longitude             float64       `json:"longitude"`
	UserAgent             string        `json:"user_agent"`

	// Heat pump unit
	HeatPumpAddress    string        `json:"heat_pump_address"` // Modbus TCP address (IP:PORT)
	ActuationInterval  time.Duration `json:"actuation_interval"`
	HeatPumpSlaveID    int           `json:"heat_pump_slave_id"`
	BaselineLoadKW     float64       `json:"baseline_load_kw"` // household load outside the heat pump
	PVSensorFromMeter  bool          `json:"pv_sensor_from_meter"`

	// Heating curve
	Curve heatcurve.Curve `json:"heating_curve"`

	// Building envelope
	AreaM2         float64 `json:"area_m2"`
	CeilingHeightM float64 `json:"ceiling_height_m"`
	EnergyLabel    string  `json:"energy_label"`
	Ventilation    string  `json:"ventilation_type"`
	IndoorTemp     float64 `json:"indoor_temp"`
	GlassEastM2    float64 `json:"glass_east_m2"`
	GlassWestM2    float64 `json:"glass_west_m2"`
	GlassSouthM2   float64 `json:"glass_south_m2"`
	GlassUValue    float64 `json:"glass_u_value"`

	// PV installation
	PVEastWp  float64 `json:"pv_east_wp"`
	PVSouthWp float64 `json:"pv_south_wp"`
	PVWestWp  float64 `json:"pv_west_wp"`
	PVTiltDeg float64 `json:"pv_tilt_deg"`

	// Optimizer parameters
	OffsetMin          int     `json:"offset_min"`
	OffsetMax          int     `json:"offset_max"`
	OffsetStepMax      int     `json:"offset_step_max"`
	COPBase            float64 `json:"cop_base"`
	KFactor            float64 `json:"k_factor"`
	OutdoorAlpha       float64 `json:"outdoor_coeff_alpha"`
	CompensationFactor float64 `json:"cop_compensation_f"`
	StorageEta         float64 `json:"storage_efficiency_eta"`
	MaxDebtKWh         float64 `json:"max_buffer_debt_kwh"`
	TerminalLambda     float64 `json:"terminal_penalty_lambda"`

	// Persistence
	PostgresConnString string `json:"postgres_conn_string"`

	// Web server
	HealthCheckPort int `json:"health_check_port"` // 0 = disabled

	// Logging settings
	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		HorizonSteps:          12,
		StepHours:             1.0,
		PlanInterval:          15 * time.Minute,
		APITimeout:            30 * time.Second,
		UrlFormat:             "https://web-api.tp.entsoe.eu/api?documentType=A44&out_Domain=10YNL----------L&in_Domain=10YNL----------L&periodStart=%s&periodEnd=%s&securityToken=%s",
		Location:              "CET",
		EnergyTaxPerKWh:       0.1088,
		MarkupPerKWh:          0.018,
		VATRate:               0.21,
		FeedInPerKWh:          0.0,
		WeatherUpdateInterval: 1 * time.Hour,
		Latitude:              52.0907, // Utrecht
		Longitude:             5.1214,
		UserAgent:             "heatplan/1.0 (user@example.com)",
		ActuationInterval:     1 * time.Minute,
		HeatPumpSlaveID:       1,
		BaselineLoadKW:        0.4,
		Curve: heatcurve.Curve{
			OutdoorMin: -10,
			OutdoorMax: 20,
			WaterMin:   25,
			WaterMax:   50,
		},
		AreaM2:             140,
		CeilingHeightM:     2.6,
		EnergyLabel:        "B",
		Ventilation:        "balanced",
		IndoorTemp:         20,
		GlassUValue:        1.2,
		PVTiltDeg:          35,
		OffsetMin:          -4,
		OffsetMax:          4,
		OffsetStepMax:      1,
		COPBase:            3.8,
		KFactor:            0.03,
		OutdoorAlpha:       0.05,
		CompensationFactor: 0.9,
		StorageEta:         0.5,
		MaxDebtKWh:         5.0,
		TerminalLambda:     0.01,
		LogLevel:           "info",
		LogFormat:          "text",
	}
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filename string) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	config := DefaultConfig()

	decoder := json.NewDecoder(reader)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config JSON: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves the configuration to a JSON file
func (c *Config) SaveConfig(filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(c)
}

// Validate checks if the configuration values are valid
func (c *Config) Validate() error {
	if c.HorizonSteps < 1 || c.HorizonSteps > 96 {
		return fmt.Errorf("horizon_steps must be between 1 and 96, got: %d", c.HorizonSteps)
	}
	if c.StepHours <= 0 || c.StepHours > 2 {
		return fmt.Errorf("step_hours must be in (0, 2], got: %g", c.StepHours)
	}
	if c.PlanInterval <= 0 {
		return fmt.Errorf("plan_interval must be greater than 0, got: %s", c.PlanInterval)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("api_timeout must be greater than 0, got: %s", c.APITimeout)
	}
	if c.WeatherUpdateInterval <= 0 {
		return fmt.Errorf("weather_update_interval must be greater than 0, got: %s", c.WeatherUpdateInterval)
	}
	if c.ActuationInterval <= 0 {
		return fmt.Errorf("actuation_interval must be greater than 0, got: %s", c.ActuationInterval)
	}
	if c.UrlFormat == "" {
		return fmt.Errorf("url_format cannot be empty")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent cannot be empty")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude must be between -90 and 90, got: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude must be between -180 and 180, got: %f", c.Longitude)
	}
	if err := c.Curve.Validate(); err != nil {
		return fmt.Errorf("invalid heating curve: %w", err)
	}
	if c.HealthCheckPort < 0 || c.HealthCheckPort > 65535 {
		return fmt.Errorf("health_check_port must be between 0 and 65535, got: %d", c.HealthCheckPort)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s, must be one of: debug, info, warn, error", c.LogLevel)
	}
	validLogFormats := map[string]bool{"text": true, "json": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("invalid log_format: %s, must be one of: text, json", c.LogFormat)
	}

	// The planner validates the optimization parameters themselves;
	// run a probe input through it so malformed configs fail at load
	// time rather than on the first planning cycle.
	probe := c.PlannerInput(time.Now())
	probe.BaseSupplyTemp = make([]float64, c.HorizonSteps)
	probe.OutdoorTemp = make([]float64, c.HorizonSteps)
	probe.Radiation = make([]float64, c.HorizonSteps)
	probe.PriceConsumption = make([]float64, c.HorizonSteps)
	probe.BaselineLoad = make([]float64, c.HorizonSteps)
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("invalid planner parameters: %w", err)
	}

	return nil
}

// PlannerInput builds the static part of a planner input from the
// configuration; the caller fills in the forecast series.
func (c *Config) PlannerInput(start time.Time) planner.Input {
	in := planner.DefaultInput()
	in.HorizonSteps = c.HorizonSteps
	in.StepHours = c.StepHours
	in.StartTime = start
	in.AreaM2 = c.AreaM2
	in.CeilingHeightM = c.CeilingHeightM
	in.EnergyLabel = planner.EnergyLabel(c.EnergyLabel)
	in.Ventilation = planner.VentilationType(c.Ventilation)
	in.IndoorTemp = c.IndoorTemp
	in.GlassEastM2 = c.GlassEastM2
	in.GlassWestM2 = c.GlassWestM2
	in.GlassSouthM2 = c.GlassSouthM2
	in.GlassUValue = c.GlassUValue
	in.PVEastWp = c.PVEastWp
	in.PVSouthWp = c.PVSouthWp
	in.PVWestWp = c.PVWestWp
	in.PVTiltDeg = c.PVTiltDeg
	in.WaterMin = c.Curve.WaterMin
	in.WaterMax = c.Curve.WaterMax
	in.OffsetMin = c.OffsetMin
	in.OffsetMax = c.OffsetMax
	in.OffsetStepMax = c.OffsetStepMax
	in.COPBase = c.COPBase
	in.KFactor = c.KFactor
	in.OutdoorAlpha = c.OutdoorAlpha
	in.CompensationFactor = c.CompensationFactor
	in.StorageEta = c.StorageEta
	in.MaxDebtKWh = c.MaxDebtKWh
	in.TerminalLambda = c.TerminalLambda
	return in
}

// MarshalJSON implements custom JSON marshaling to handle durations
func (c *Config) MarshalJSON() ([]byte, error) {
	type Alias Config
	return json.Marshal(&struct {
		*Alias
		PlanInterval          string `json:"plan_interval"`
		APITimeout            string `json:"api_timeout"`
		WeatherUpdateInterval string `json:"weather_update_interval"`
		ActuationInterval     string `json:"actuation_interval"`
	}{
		Alias:                 (*Alias)(c),
		PlanInterval:          c.PlanInterval.String(),
		APITimeout:            c.APITimeout.String(),
		WeatherUpdateInterval: c.WeatherUpdateInterval.String(),
		ActuationInterval:     c.ActuationInterval.String(),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling to handle durations
func (c *Config) UnmarshalJSON(data []byte) error {
	type Alias Config
	aux := &struct {
		*Alias
		PlanInterval          string `json:"plan_interval"`
		APITimeout            string `json:"api_timeout"`
		WeatherUpdateInterval string `json:"weather_update_interval"`
		ActuationInterval     string `json:"actuation_interval"`
	}{
		Alias: (*Alias)(c),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if aux.PlanInterval != "" {
		if c.PlanInterval, err = time.ParseDuration(aux.PlanInterval); err != nil {
			return fmt.Errorf("invalid plan_interval: %w", err)
		}
	}
	if aux.APITimeout != "" {
		if c.APITimeout, err = time.ParseDuration(aux.APITimeout); err != nil {
			return fmt.Errorf("invalid api_timeout: %w", err)
		}
	}
	if aux.WeatherUpdateInterval != "" {
		if c.WeatherUpdateInterval, err = time.ParseDuration(aux.WeatherUpdateInterval); err != nil {
			return fmt.Errorf("invalid weather_update_interval: %w", err)
		}
	}
	if aux.ActuationInterval != "" {
		if c.ActuationInterval, err = time.ParseDuration(aux.ActuationInterval); err != nil {
			return fmt.Errorf("invalid actuation_interval: %w", err)
		}
	}

	return nil
}

// String returns a string representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}
