package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/getcharzp/go-mobilesam/sam"
	"github.com/spf13/viper"
)

const (
	// configFileName 配置文件名 (不含扩展名)
	configFileName = "mobilesam"
	// envPrefix 环境变量前缀, 如 MOBILESAM_ENCODER
	envPrefix = "MOBILESAM"
)

// Config 命令行配置
type Config struct {
	OnnxRuntimeLib string `mapstructure:"onnxruntime_lib"`
	Encoder        string `mapstructure:"encoder"`
	Decoder        string `mapstructure:"decoder"`
	UseCuda        bool   `mapstructure:"use_cuda"`
	NumThreads     int    `mapstructure:"num_threads"`

	LogLevel       string `mapstructure:"log_level"`
	LogDevelopment bool   `mapstructure:"log_development"`
}

// SamConfig 转为引擎配置
func (c Config) SamConfig() sam.Config {
	return sam.Config{
		OnnxRuntimeLibPath: c.OnnxRuntimeLib,
		EncodeModelPath:    c.Encoder,
		DecodeModelPath:    c.Decoder,
		UseCuda:            c.UseCuda,
		NumThreads:         c.NumThreads,
	}
}

// Validate 检查必填项
func (c Config) Validate() error {
	var errs []error
	if c.OnnxRuntimeLib == "" {
		errs = append(errs, errors.New("onnxruntime_lib 不能为空"))
	}
	if c.Encoder == "" {
		errs = append(errs, errors.New("encoder 不能为空"))
	}
	if c.Decoder == "" {
		errs = append(errs, errors.New("decoder 不能为空"))
	}
	if c.NumThreads < 0 {
		errs = append(errs, fmt.Errorf("num_threads 不能为负数: %d", c.NumThreads))
	}
	return errors.Join(errs...)
}

// newViper 设置默认值、搜索路径与环境变量
func newViper() *viper.Viper {
	v := viper.New()
	def := sam.DefaultConfig()
	v.SetDefault("onnxruntime_lib", def.OnnxRuntimeLibPath)
	v.SetDefault("encoder", def.EncodeModelPath)
	v.SetDefault("decoder", def.DecodeModelPath)
	v.SetDefault("use_cuda", def.UseCuda)
	v.SetDefault("num_threads", def.NumThreads)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_development", true)

	v.SetConfigName(configFileName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", configFileName))
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// loadConfig 读取配置文件 (可选), 合并环境变量与命令行参数
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置校验失败: %w", err)
	}
	return &cfg, nil
}
