package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configLoader 按 默认值 < 配置文件 < 环境变量 < 命令行 的优先级填充 target。
type configLoader struct {
	name string
	v    *viper.Viper
}

func newConfigLoader(name string) *configLoader {
	return &configLoader{name: name, v: viper.New()}
}

// load 读取配置文件并解码到 target。file 为空时按名称在常用目录中查找,
// 找不到文件不是错误。
func (l *configLoader) load(file string, flags *pflag.FlagSet, target any) error {
	v := l.v
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(l.name)
		v.SetConfigType("yaml")
		for _, dir := range []string{".", "./configs", filepath.Join(os.Getenv("HOME"), "."+l.name), "/etc/" + l.name} {
			v.AddConfigPath(dir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	l.expandEnv()

	// 每个参数名都绑定为环境变量, 没有配置文件时 SENTINEL_RAG_RAG_MIN_SCORE 也能生效
	v.SetEnvPrefix(envPrefix(l.name))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	flags.VisitAll(func(f *pflag.Flag) { _ = v.BindEnv(f.Name) })

	if target == nil {
		return nil
	}

	changed := map[string]string{}
	flags.Visit(func(f *pflag.Flag) { changed[f.Name] = f.Value.String() })

	if err := v.Unmarshal(target); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 显式传入的参数优先级最高, 解码后重新写回
	for name, val := range changed {
		f := flags.Lookup(name)
		var err error
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			err = sv.Replace(sliceFlagItems(val))
		} else {
			if f.Value.Type() == "stringToString" {
				val = strings.Trim(val, "[]")
			}
			err = f.Value.Set(val)
		}
		if err != nil {
			return fmt.Errorf("failed to re-apply flag %s: %w", name, err)
		}
	}
	return nil
}

// expandEnv 展开配置文件字符串中的 ${VAR}、${VAR:-default} 与 $VAR。
func (l *configLoader) expandEnv() {
	for _, key := range l.v.AllKeys() {
		s, ok := l.v.Get(key).(string)
		if !ok {
			continue
		}
		if expanded := expandString(s); expanded != s {
			l.v.Set(key, expanded)
		}
	}
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}|\$([A-Za-z_][A-Za-z0-9_]*)`)

// expandString 未设置且没有默认值的变量保留原文。
func expandString(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		m := envPattern.FindStringSubmatch(match)
		name, hasDefault, def := m[1], m[2] != "", m[3]
		if name == "" {
			name = m[4]
		}
		if val, ok := os.LookupEnv(name); ok && val != "" {
			return val
		}
		if hasDefault {
			return def
		}
		return match
	})
}

// envPrefix sentinel-rag -> SENTINEL_RAG。
func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// sliceFlagItems 还原 slice 参数的 String() 输出, 例如 "[a,b]"。
func sliceFlagItems(val string) []string {
	val = strings.TrimSuffix(strings.TrimPrefix(val, "["), "]")
	if val == "" {
		return nil
	}
	return strings.Split(val, ",")
}

// loadEnvFiles 加载 dotenv 文件, 文件不存在时跳过; 已存在的环境变量不会被覆盖。
func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}
	return nil
}
