package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	log "github.com/sirupsen/logrus"
)

type Application struct {
	Server     Server     `koanf:"server"`
	Database   Database   `koanf:"db"`
	Scheduling Scheduling `koanf:"scheduling"`
	Cors       Cors       `koanf:"cors"`
	RateLimit  RateLimit  `koanf:"ratelimit"`
}

type Server struct {
	Addr         string        `koanf:"addr"`
	ReadTimeout  time.Duration `koanf:"readtimeout"`
	WriteTimeout time.Duration `koanf:"writetimeout"`
	IdleTimeout  time.Duration `koanf:"idletimeout"`
}

type Database struct {
	Host   string `koanf:"host"`
	Port   int    `koanf:"port"`
	User   string `koanf:"user"`
	Pass   string `koanf:"pass"`
	Name   string `koanf:"name"`
	Schema string `koanf:"schema"`
}

// Scheduling holds the deployment-wide calendar settings. Days are interpreted
// in Timezone and capacity is measured inside [WorkStartHour, WorkEndHour).
type Scheduling struct {
	Timezone      string `koanf:"timezone"`
	WorkStartHour int    `koanf:"workstarthour"`
	WorkEndHour   int    `koanf:"workendhour"`
}

type Cors struct {
	AllowedOrigins []string `koanf:"allowedorigins"`
}

type RateLimit struct {
	Enabled bool    `koanf:"enabled"`
	RPS     float64 `koanf:"rps"`
	Burst   int     `koanf:"burst"`
}

// Location resolves the configured IANA time zone.
func (s Scheduling) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduling timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

func Defaults() Application {
	return Application{
		Server: Server{
			Addr:         ":8181",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Database: Database{
			Host:   "localhost",
			Port:   5432,
			User:   "timeline",
			Pass:   "",
			Name:   "timeline",
			Schema: "timeline",
		},
		Scheduling: Scheduling{
			Timezone:      "UTC",
			WorkStartHour: 6,
			WorkEndHour:   22,
		},
		Cors: Cors{
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		RateLimit: RateLimit{
			Enabled: true,
			RPS:     20,
			Burst:   40,
		},
	}
}

func Load(path string) (Application, error) {
	var k = koanf.New(".")

	err := k.Load(structs.Provider(Defaults(), "koanf"), nil)
	if err != nil {
		log.Errorf("error loading config from structs: %v", err)
		return Application{}, err
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		if os.IsNotExist(err) {
			log.Infof("Config file not found at %s, using defaults and environment variables", path)
		} else {
			log.Errorf("error loading config from YAML: %v", err)
			return Application{}, err
		}
	} else {
		log.Infof("Loaded configuration from file: %s", path)
	}

	err = k.Load(env.Provider(".", env.Opt{
		Prefix: "TIMELINE_",
		TransformFunc: func(k, v string) (string, any) {
			// Transform the key. Lists are comma separated, e.g. TIMELINE_CORS_ALLOWEDORIGINS=a,b
			k = strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(k, "TIMELINE_")), "_", ".")
			return k, v
		},
	}), nil)
	if err != nil {
		log.Errorf("error loading config from envs: %v", err)
		return Application{}, err
	}

	var app Application
	if err := k.Unmarshal("", &app); err != nil {
		return Application{}, err
	}

	if _, err := app.Scheduling.Location(); err != nil {
		return Application{}, err
	}
	app.Scheduling.WorkStartHour = clampHour(app.Scheduling.WorkStartHour)
	app.Scheduling.WorkEndHour = clampHour(app.Scheduling.WorkEndHour)
	if app.Scheduling.WorkEndHour <= app.Scheduling.WorkStartHour {
		log.Warnf("working window %d-%d is empty, capacity will report zero total minutes",
			app.Scheduling.WorkStartHour, app.Scheduling.WorkEndHour)
	}

	return app, nil
}

func clampHour(h int) int {
	if h < 0 {
		return 0
	}
	if h > 24 {
		return 24
	}
	return h
}
