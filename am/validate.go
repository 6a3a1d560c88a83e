package am

import (
	"github.com/Masterminds/semver/v3"

	"github.com/OliverSieweke/supermarket-customer-behavior/errors"
	"github.com/OliverSieweke/supermarket-customer-behavior/version"
)

// Validate checks a loaded configuration for values that would fail later in
// confusing ways. Returns the first problem found.
func Validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return errors.Newf("server.port %d outside valid range 1-65535", cfg.Server.Port)
	}

	if cfg.Ingest.Workers < 1 {
		return errors.Newf("ingest.workers must be at least 1, got %d", cfg.Ingest.Workers)
	}
	if cfg.Ingest.PollIntervalSeconds < 1 {
		return errors.Newf("ingest.poll_interval_seconds must be at least 1, got %d", cfg.Ingest.PollIntervalSeconds)
	}
	if cfg.Ingest.JobsPerMinute < 0 {
		return errors.Newf("ingest.jobs_per_minute must not be negative, got %d", cfg.Ingest.JobsPerMinute)
	}

	if cfg.Sim.Customers < 1 {
		return errors.Newf("sim.customers must be at least 1, got %d", cfg.Sim.Customers)
	}
	if cfg.Sim.MaxSteps < 1 {
		return errors.Newf("sim.max_steps must be at least 1, got %d", cfg.Sim.MaxSteps)
	}

	if cfg.Data.EntranceLocation == "" || cfg.Data.CheckoutLocation == "" {
		return errors.New("data.entrance_location and data.checkout_location must not be empty")
	}
	if cfg.Data.EntranceLocation == cfg.Data.CheckoutLocation {
		return errors.Newf("entrance and checkout locations must differ, both are %q", cfg.Data.EntranceLocation)
	}

	if err := checkRequiredVersion(cfg.RequireVersion); err != nil {
		return err
	}

	return nil
}

// checkRequiredVersion enforces the optional require_version semver constraint
// against the running binary. Dev builds ("dev") always pass, so local builds
// can use shared config files.
func checkRequiredVersion(constraint string) error {
	if constraint == "" {
		return nil
	}

	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "invalid require_version constraint %q", constraint)
	}

	// The exemption covers only the version check; a malformed constraint is
	// rejected on dev builds too.
	info := version.Get()
	if info.Version == "dev" {
		return nil
	}

	current, err := semver.NewVersion(info.Version)
	if err != nil {
		return errors.Wrapf(err, "cannot parse binary version %q", info.Version)
	}

	if !c.Check(current) {
		err := errors.Newf("scb %s does not satisfy config require_version %q", info.Version, constraint)
		return errors.WithHint(err, "upgrade scb or relax require_version in the config file")
	}

	return nil
}
