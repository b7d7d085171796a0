package core

// Environment selects deployment behavior: log format and level, gin mode,
// and which safety rails stay loud versus quiet.
type Environment string

const (
	Development Environment = "development"
	Staging     Environment = "staging"
	Testing     Environment = "testing"
	Production  Environment = "production"
)

func (e Environment) String() string {
	return string(e)
}

// IsProduction reports whether this deployment serves real tenant traffic.
func (e Environment) IsProduction() bool {
	return e == Production
}

// ParseEnvironment maps the configured value onto a known environment.
// Anything unrecognized runs as Development: the chattiest, least
// destructive mode.
func ParseEnvironment(v string) Environment {
	switch Environment(v) {
	case Production:
		return Production
	case Staging:
		return Staging
	case Testing:
		return Testing
	default:
		return Development
	}
}
