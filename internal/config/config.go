// Package config handles hullmap configuration loading and management.
package config

import "time"

// Config holds all hullmap settings.
type Config struct {
	Input   InputConfig    `yaml:"input"`
	Output  OutputConfig   `yaml:"output"`
	Cameras []CameraConfig `yaml:"cameras"`
	Fetch   FetchConfig    `yaml:"fetch"`
	Server  ServerConfig   `yaml:"server"`
	Logging LoggingConfig  `yaml:"logging"`
}

// InputConfig holds the model and texture paths or URLs for a CLI run.
type InputConfig struct {
	Model    string   `yaml:"model"`
	Textures []string `yaml:"textures"` // indexed by CameraConfig.Texture
}

// OutputConfig holds where exported models go.
type OutputConfig struct {
	Path string `yaml:"path"` // explicit .glb path; generated under Dir when empty
	Dir  string `yaml:"dir"`

	// MaxTextureSize caps embedded texture width and height in pixels; 0 embeds as loaded.
	MaxTextureSize int `yaml:"max_texture_size"`
}

// CameraConfig describes one view: a fixed camera, the model pose it expects,
// and which faces it textures. Angles are in degrees.
type CameraConfig struct {
	Name          string     `yaml:"name"`
	Type          string     `yaml:"type"` // perspective or orthographic
	Location      [3]float32 `yaml:"location"`
	Rotation      [3]float32 `yaml:"rotation"`
	SensorWidth   float32    `yaml:"sensor_width"`
	SensorHeight  float32    `yaml:"sensor_height"`
	FocalLength   float32    `yaml:"focal_length"`
	ModelRotation [3]float32 `yaml:"model_rotation"`
	Rule          RuleConfig `yaml:"rule"`
	Material      string     `yaml:"material"`
	Texture       int        `yaml:"texture"`
}

// RuleConfig holds a face selection rule.
type RuleConfig struct {
	Axis     string     `yaml:"axis"`     // x, y or z
	Extremum string     `yaml:"extremum"` // max or min
	Epsilon  float32    `yaml:"epsilon"`
	Normal   [3]float32 `yaml:"normal"`
}

// FetchConfig holds download settings for http(s) inputs.
type FetchConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Retries    int           `yaml:"retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
	TempDir    string        `yaml:"temp_dir"`
}

// ServerConfig holds HTTP service settings.
type ServerConfig struct {
	Listen         string   `yaml:"listen"`
	BaseURL        string   `yaml:"base_url"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS origins; empty disables CORS headers
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with the top and side camera views.
func Default() *Config {
	return &Config{
		Output: OutputConfig{
			Dir: "output",
		},
		Cameras: []CameraConfig{
			{
				Name:         "Camera_Top",
				Type:         "perspective",
				Location:     [3]float32{0, 0, 16},
				Rotation:     [3]float32{0, 0, 90},
				SensorWidth:  36,
				SensorHeight: 24,
				FocalLength:  50,
				Rule: RuleConfig{
					Axis:     "z",
					Extremum: "max",
					Epsilon:  1.5,
					Normal:   [3]float32{0, 0, 1},
				},
				Material: "Material_Top",
				Texture:  0,
			},
			{
				Name:          "Camera_Side",
				Type:          "perspective",
				Location:      [3]float32{14, 0, 1.3},
				Rotation:      [3]float32{90, 0, 90},
				SensorWidth:   36,
				SensorHeight:  24,
				FocalLength:   50,
				ModelRotation: [3]float32{0, 90, 0},
				Rule: RuleConfig{
					Axis:     "x",
					Extremum: "max",
					Epsilon:  1.5,
					Normal:   [3]float32{1, 0, 0},
				},
				Material: "Material_Side",
				Texture:  1,
			},
		},
		Fetch: FetchConfig{
			Timeout:    60 * time.Second,
			Retries:    0,
			RetryDelay: time.Second,
		},
		Server: ServerConfig{
			Listen: ":8080",
			AllowedOrigins: []string{
				"http://localhost:5173",
				"http://127.0.0.1:5173",
			},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
