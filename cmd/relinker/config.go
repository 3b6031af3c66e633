package main

import (
	"os"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config is an optional relinker.yaml holding the arguments a build
// system would otherwise pass on every call. Flags win over it.
type Config struct {
	Input     string `yaml:"input"`
	Output    string `yaml:"output"`
	Library   string `yaml:"library"`
	Object    string `yaml:"object"`
	Function  string `yaml:"function"`
	SDKConfig string `yaml:"sdkconfig"`
	Objdump   string `yaml:"objdump"`
	Target    string `yaml:"target"`
	// IDFVersion selects the marker variant together with Target.
	IDFVersion string `yaml:"idf_version"`
	Markers    string `yaml:"markers"`

	MissingFunctionInfo *bool `yaml:"missing_function_info"`
	LinkToIRAM          *bool `yaml:"link_to_iram"`
	Workers             *int  `yaml:"workers"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func loadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(data, &cfg)
	return cfg, err
}

// args is the effective invocation after merging flags and config.
type args struct {
	input, output             string
	library, object, function string
	sdkconfig, objdump        string
	target, idfVersion        string
	markers                   string
	tolerant, linkToIRAM      bool
	workers                   int
}

// applyConfig fills every argument whose flag was not set explicitly.
func applyConfig(c *cli.Command, cfg Config, a *args) {
	str := func(flag, v string, dst *string) {
		if v != "" && !c.IsSet(flag) {
			*dst = v
		}
	}
	str("input", cfg.Input, &a.input)
	str("output", cfg.Output, &a.output)
	str("library", cfg.Library, &a.library)
	str("object", cfg.Object, &a.object)
	str("function", cfg.Function, &a.function)
	str("sdkconfig", cfg.SDKConfig, &a.sdkconfig)
	str("objdump", cfg.Objdump, &a.objdump)
	str("target", cfg.Target, &a.target)
	str("idf-version", cfg.IDFVersion, &a.idfVersion)
	str("markers", cfg.Markers, &a.markers)
	if cfg.MissingFunctionInfo != nil && !c.IsSet("missing-function-info") {
		a.tolerant = *cfg.MissingFunctionInfo
	}
	if cfg.LinkToIRAM != nil && !c.IsSet("link-to-iram") {
		a.linkToIRAM = *cfg.LinkToIRAM
	}
	if cfg.Workers != nil && !c.IsSet("workers") {
		a.workers = *cfg.Workers
	}
}

// applyLogConfig runs before the logger is built.
func applyLogConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}
