// Package settings loads the run variables file (credentials and template
// location) used by newtboot.
//
// The file is ini-style:
//
//	[ROUTERS]
//	username = admin
//	password = admin
//	port = 22
//	known_hosts = ~/.ssh/known_hosts
//
//	[CONFIGURATION]
//	templates = templates
//	journal = log/push.jsonl
//
// Values can be overridden from the environment (NEWTBOOT_USERNAME,
// NEWTBOOT_PASSWORD, NEWTBOOT_TEMPLATES); a .env file in the working
// directory is read first when present.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/newtron-network/newtboot/pkg/driver"
	"github.com/newtron-network/newtboot/pkg/util"
)

// DefaultVarsPath is used when --vars is not given
const DefaultVarsPath = "env.cfg"

// Environment overrides
const (
	EnvUsername  = "NEWTBOOT_USERNAME"
	EnvPassword  = "NEWTBOOT_PASSWORD"
	EnvTemplates = "NEWTBOOT_TEMPLATES"
)

const defaultSSHPort = 22

const (
	sectionRouters = "ROUTERS"
	sectionConfig  = "CONFIGURATION"
)

// Vars holds the run variables
type Vars struct {
	Username string
	Password string

	// SSHPort is the management port for SSH-based drivers
	SSHPort int

	// KnownHosts enables host key verification when set
	KnownHosts string

	// Templates is the root of <vendor>/<os>/<action>.txt
	Templates string

	// Journal is the push journal path; empty disables it
	Journal string
}

// LoadVars reads the vars file and applies environment overrides
func LoadVars(path string) (*Vars, error) {
	// Inline comments must follow a space; "#" and ";" inside values are kept.
	cfg, err := ini.LoadSources(ini.LoadOptions{SpaceBeforeInlineComment: true}, path)
	if err != nil {
		return nil, fmt.Errorf("loading vars file %s: %w", path, err)
	}

	routers := cfg.Section(sectionRouters)
	conf := cfg.Section(sectionConfig)

	port := defaultSSHPort
	if k := routers.Key("port"); k.String() != "" {
		port, err = k.Int()
		if err != nil {
			return nil, fmt.Errorf("%w: ROUTERS.port %q is not a number", util.ErrInvalidConfig, k.String())
		}
	}

	v := &Vars{
		Username:   routers.Key("username").String(),
		Password:   routers.Key("password").String(),
		SSHPort:    port,
		KnownHosts: expandHome(routers.Key("known_hosts").String()),
		Templates:  conf.Key("templates").String(),
		Journal:    conf.Key("journal").String(),
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	v.ApplyEnv()

	if err := v.Validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// LoadDotEnv loads a dotenv file into the process environment without
// overwriting variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides values from NEWTBOOT_* environment variables
func (v *Vars) ApplyEnv() {
	if s := os.Getenv(EnvUsername); s != "" {
		v.Username = s
	}
	if s := os.Getenv(EnvPassword); s != "" {
		v.Password = s
	}
	if s := os.Getenv(EnvTemplates); s != "" {
		v.Templates = s
	}
}

// Validate checks the fields a run cannot do without
func (v *Vars) Validate() error {
	var b util.ValidationBuilder
	b.Add(v.Templates != "", "CONFIGURATION.templates is required")
	b.Add(v.SSHPort > 0 && v.SSHPort < 65536, fmt.Sprintf("ROUTERS.port out of range: %d", v.SSHPort))
	return b.Build()
}

// Credentials returns the driver credentials
func (v *Vars) Credentials() driver.Credentials {
	return driver.Credentials{
		Username:   v.Username,
		Password:   v.Password,
		Port:       v.SSHPort,
		KnownHosts: v.KnownHosts,
	}
}

func expandHome(p string) string {
	if !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, p[2:])
}
