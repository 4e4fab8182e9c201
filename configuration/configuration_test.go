package configuration

import (
	"bytes"
	"os"
	"testing"

	. "gopkg.in/check.v1"
	"gopkg.in/yaml.v2"
)

// Hook up gocheck into the "go test" runner
func Test(t *testing.T) { TestingT(t) }

// configStruct is a canonical example configuration, which should map to
// configYamlV0_1.
var configStruct = Configuration{
	Version: "0.1",
	Log: Log{
		Fields: map[string]interface{}{"environment": "test"},
		Level:  "info",
	},
	Server: Server{
		Addr: ":7946",
	},
	Broadcast: Broadcast{
		Type: "memory",
	},
	Reporting: Reporting{
		Bugsnag: BugsnagReporting{
			APIKey: "BugsnagApiKey",
		},
	},
}

// configYamlV0_1 is a Version 0.1 yaml document representing configStruct.
var configYamlV0_1 = `
version: 0.1
log:
  fields:
    environment: test
server:
  addr: ":7946"
reporting:
  bugsnag:
    apikey: BugsnagApiKey
`

// redisConfigYamlV0_1 is a Version 0.1 yaml document selecting the redis
// broadcast strategy.
var redisConfigYamlV0_1 = `
version: 0.1
log:
  level: debug
server:
  addr: ":7946"
broadcast:
  type: redis
  redis:
    addr: "localhost:6379"
    channel: relay-rooms
`

type ConfigSuite struct {
	expectedConfig *Configuration
}

var _ = Suite(new(ConfigSuite))

func (suite *ConfigSuite) SetUpTest(c *C) {
	os.Clearenv()
	suite.expectedConfig = copyConfig(configStruct)
}

// TestMarshalRoundtrip validates that configStruct can be marshaled and
// unmarshaled without changing any parameters.
func (suite *ConfigSuite) TestMarshalRoundtrip(c *C) {
	configBytes, err := yaml.Marshal(suite.expectedConfig)
	c.Assert(err, IsNil)
	config, err := Parse(bytes.NewReader(configBytes))
	c.Assert(err, IsNil)
	c.Assert(config, DeepEquals, suite.expectedConfig)
}

// TestParseSimple validates that configYamlV0_1 can be parsed into a struct
// matching configStruct.
func (suite *ConfigSuite) TestParseSimple(c *C) {
	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config, DeepEquals, suite.expectedConfig)
}

// TestParseRedisBroadcast validates that a redis broadcast section is
// parsed into the Broadcast fields, with log-level defaulting skipped
// because the document sets it explicitly.
func (suite *ConfigSuite) TestParseRedisBroadcast(c *C) {
	config, err := Parse(bytes.NewReader([]byte(redisConfigYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config.Broadcast.Type, Equals, "redis")
	c.Assert(config.Broadcast.Redis.Addr, Equals, "localhost:6379")
	c.Assert(config.Broadcast.Redis.Channel, Equals, "relay-rooms")
	c.Assert(config.Log.Level, Equals, Loglevel("debug"))
}

// TestParseMissingServerAddr validates that a configuration with no server
// address fails to parse.
func (suite *ConfigSuite) TestParseMissingServerAddr(c *C) {
	incompleteConfigYaml := "version: 0.1"
	_, err := Parse(bytes.NewReader([]byte(incompleteConfigYaml)))
	c.Assert(err, NotNil)
}

// TestParseUnknownBroadcastType validates that an unrecognized broadcast
// type is rejected.
func (suite *ConfigSuite) TestParseUnknownBroadcastType(c *C) {
	badConfigYaml := "version: 0.1\nserver:\n  addr: \":7946\"\nbroadcast:\n  type: carrier-pigeon"
	_, err := Parse(bytes.NewReader([]byte(badConfigYaml)))
	c.Assert(err, NotNil)
}

// TestParseWithEnvLogLevel validates that providing an environment variable
// defining the log level will override the value provided in the yaml
// document.
func (suite *ConfigSuite) TestParseWithEnvLogLevel(c *C) {
	suite.expectedConfig.Log.Level = "error"

	os.Setenv("RELAYD_LOG_LEVEL", "error")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config, DeepEquals, suite.expectedConfig)
}

// TestParseInvalidLoglevel validates that the parser will fail to parse a
// configuration if the log level is malformed.
func (suite *ConfigSuite) TestParseInvalidLoglevel(c *C) {
	invalidConfigYaml := "version: 0.1\nserver:\n  addr: \":7946\"\nlog:\n  level: derp"
	_, err := Parse(bytes.NewReader([]byte(invalidConfigYaml)))
	c.Assert(err, NotNil)
}

// TestParseWithDifferentEnvReporting validates that environment variables
// properly override reporting parameters.
func (suite *ConfigSuite) TestParseWithDifferentEnvReporting(c *C) {
	suite.expectedConfig.Reporting.Bugsnag.APIKey = "anotherBugsnagApiKey"
	suite.expectedConfig.Reporting.Bugsnag.Endpoint = "localhost:8080"

	os.Setenv("RELAYD_REPORTING_BUGSNAG_APIKEY", "anotherBugsnagApiKey")
	os.Setenv("RELAYD_REPORTING_BUGSNAG_ENDPOINT", "localhost:8080")

	config, err := Parse(bytes.NewReader([]byte(configYamlV0_1)))
	c.Assert(err, IsNil)
	c.Assert(config, DeepEquals, suite.expectedConfig)
}

// TestParseInvalidVersion validates that the parser will fail to parse a
// newer configuration version than the CurrentVersion.
func (suite *ConfigSuite) TestParseInvalidVersion(c *C) {
	suite.expectedConfig.Version = MajorMinorVersion(CurrentVersion.Major(), CurrentVersion.Minor()+1)
	configBytes, err := yaml.Marshal(suite.expectedConfig)
	c.Assert(err, IsNil)
	_, err = Parse(bytes.NewReader(configBytes))
	c.Assert(err, NotNil)
}

func copyConfig(config Configuration) *Configuration {
	configCopy := new(Configuration)

	configCopy.Version = MajorMinorVersion(config.Version.Major(), config.Version.Minor())
	configCopy.Log = config.Log
	configCopy.Log.Fields = make(map[string]interface{}, len(config.Log.Fields))
	for k, v := range config.Log.Fields {
		configCopy.Log.Fields[k] = v
	}

	configCopy.Server = config.Server
	configCopy.Broadcast = config.Broadcast
	configCopy.Reporting = config.Reporting

	return configCopy
}
