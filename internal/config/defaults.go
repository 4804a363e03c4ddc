package config

const (
	defaultLogDir     = "~/.local/share/montage/logs"
	defaultLedgerPath = "~/.local/share/montage/ledger.db"
	defaultJavaBinary = "java"
	defaultJarFile    = "../target/render-0.0.1-SNAPSHOT.jar"
	defaultLogFormat  = "console"
	defaultLogLevel   = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			LogDir:     defaultLogDir,
			LedgerPath: defaultLedgerPath,
		},
		Java: Java{
			Binary:  defaultJavaBinary,
			JarFile: defaultJarFile,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
