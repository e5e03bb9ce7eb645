package config

import (
	"os"
	"runtime"
	"time"

	"github.com/koding/multiconfig"

	"github.com/codequay/judgecore/model"
)

// Config defines judging daemon configuration
type Config struct {
	// sandbox
	RuncPath    string `flagUsage:"path to the runc binary" default:"runc"`
	BundleRoot  string `flagUsage:"directory holding per-instance bundle directories" default:"/var/lib/judgecore/bundles"`
	WorkDir     string `flagUsage:"directory holding per-task staging workspaces" default:"/var/lib/judgecore/work"`
	MountConf   string `flagUsage:"specifies mount configuration file" default:"mounts.yaml"`
	SeccompConf string `flagUsage:"specifies seccomp filter" default:"seccomp.yaml"`
	HostUID     int    `flagUsage:"host uid mapped to root inside the sandbox" default:"1000"`
	HostGID     int    `flagUsage:"host gid mapped to root inside the sandbox" default:"1000"`

	// judging limit
	Parallelism        int           `flagUsage:"control the # of concurrent judging workers (default equal to number of cpu)"`
	MaxSandbox         int           `flagUsage:"control the # of concurrently live sandbox instances (default equal to parallelism)"`
	OutputLimit        *model.Size   `flagUsage:"specifies max output capture for each stream" default:"64m"`
	GracePeriod        time.Duration `flagUsage:"specifies killing grace period past the time limit" default:"1s"`
	SampleInterval     time.Duration `flagUsage:"specifies memory usage sampling interval" default:"100ms"`
	CompileTimeLimit   time.Duration `flagUsage:"specifies time limit for the compile step" default:"10s"`
	CompileMemoryLimit *model.Size   `flagUsage:"specifies memory limit for the compile step" default:"1g"`

	// judging policy
	Compare          string `flagUsage:"output comparison policy (exact / trailing-space)" default:"trailing-space"`
	FailFast         bool   `flagUsage:"stop judging a task after its first non-accepted case"`
	RetrySystemError bool   `flagUsage:"retry a task once when judging fails for environmental reasons" default:"true"`
	ExtraCompileArgs string `flagUsage:"extra arguments appended to every compile command"`
	ExtraRunArgs     string `flagUsage:"extra arguments appended to every run command"`

	// monitor config
	MonitorAddr   string `flagUsage:"specifies the metrics / health binding address" default:":5052"`
	EnableMetrics bool   `flagUsage:"enable prometheus metrics endpoint"`
	EnableDebug   bool   `flagUsage:"enable debug endpoint"`

	// logger config
	Release bool `flagUsage:"release level of logs"`
	Silent  bool `flagUsage:"do not print logs"`

	// show version and exit
	Version bool `flagUsage:"show version and exit"`
}

// Load loads config from flag & environment variables
func (c *Config) Load() error {
	cl := multiconfig.MultiLoader(
		&multiconfig.TagLoader{},
		&multiconfig.EnvironmentLoader{
			Prefix:    "JC",
			CamelCase: true,
		},
		&multiconfig.FlagLoader{
			CamelCase: true,
			EnvPrefix: "JC",
		},
	)
	if os.Getpid() == 1 {
		c.Release = true
	}
	if err := cl.Load(c); err != nil {
		return err
	}
	if c.Parallelism <= 0 {
		c.Parallelism = runtime.NumCPU()
	}
	if c.MaxSandbox <= 0 {
		c.MaxSandbox = c.Parallelism
	}
	return nil
}
