// Package app 基于 cobra 与 viper 构建命令行应用。
//
// 根命令与子命令共享同一份配置: 执行任何命令之前依次加载 .env、配置文件、
// 环境变量与命令行参数, 然后执行 Complete 与 Validate。
package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kart-io/version"
	"github.com/spf13/cobra"

	cliapp "github.com/kart-io/sentinel-rag/pkg/app"
	"github.com/kart-io/sentinel-rag/pkg/app/cliflag"
)

// App 命令行应用。
type App struct {
	name        string
	shortDesc   string
	description string
	options     cliapp.CliOptions
	runFunc     RunFunc
	commands    []*cobra.Command
	envFiles    []string
	cmd         *cobra.Command
}

// RunFunc 根命令的执行函数, 调用时配置已经加载并校验完毕。
type RunFunc func() error

// Option configures an App.
type Option func(*App)

func WithName(name string) Option { return func(a *App) { a.name = name } }

func WithShortDescription(desc string) Option { return func(a *App) { a.shortDesc = desc } }

func WithDescription(desc string) Option { return func(a *App) { a.description = desc } }

// WithOptions 设置配置, 其参数注册为持久参数, 子命令同样可用。
func WithOptions(opts cliapp.CliOptions) Option { return func(a *App) { a.options = opts } }

func WithRunFunc(run RunFunc) Option { return func(a *App) { a.runFunc = run } }

// WithCommands 添加子命令。
func WithCommands(cmds ...*cobra.Command) Option {
	return func(a *App) { a.commands = append(a.commands, cmds...) }
}

// WithEnvFiles 指定启动时加载的 dotenv 文件, 默认为 .env。
func WithEnvFiles(files ...string) Option { return func(a *App) { a.envFiles = files } }

// NewApp creates a new application instance.
func NewApp(opts ...Option) *App {
	a := &App{
		name:     filepath.Base(os.Args[0]),
		envFiles: []string{".env"},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.cmd = a.newRootCommand()
	return a
}

func (a *App) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:               a.name,
		Short:             a.shortDesc,
		Long:              a.description,
		SilenceUsage:      true,
		PersistentPreRunE: a.prepare,
	}
	if a.runFunc != nil {
		cmd.RunE = func(*cobra.Command, []string) error { return a.runFunc() }
	}
	cmd.SetOut(os.Stdout)
	cmd.SetErr(os.Stderr)

	pfs := cmd.PersistentFlags()
	pfs.StringP("config", "c", "", "Path to the config file (default: ./"+a.name+".yaml, ./configs, ~/."+a.name+", /etc/"+a.name+").")
	version.AddFlags(pfs)
	pfs.BoolP("help", "h", false, "Help for "+a.name)

	if a.options != nil {
		fss := a.options.Flags()
		fss.AddTo(pfs)
		cmd.SetUsageFunc(usageFunc(cmd, fss))
	}

	cmd.AddCommand(a.commands...)
	return cmd
}

// usageFunc 按分组输出配置参数。
func usageFunc(root *cobra.Command, fss cliflag.NamedFlagSets) func(*cobra.Command) error {
	return func(c *cobra.Command) error {
		out := c.OutOrStderr()
		fmt.Fprintf(out, "Usage:\n  %s\n", c.UseLine())
		if c.HasAvailableSubCommands() {
			fmt.Fprintf(out, "\nAvailable Commands:\n")
			for _, sub := range c.Commands() {
				if sub.IsAvailableCommand() {
					fmt.Fprintf(out, "  %-12s %s\n", sub.Name(), sub.Short)
				}
			}
		}
		if c != root && c.HasAvailableLocalFlags() {
			fmt.Fprintf(out, "\nFlags:\n%s", c.LocalFlags().FlagUsages())
		}
		cliflag.PrintSections(out, fss, 0)
		return nil
	}
}

// prepare 在任意命令执行前加载并校验配置。
func (a *App) prepare(cmd *cobra.Command, _ []string) error {
	version.PrintAndExitIfRequested()

	if err := loadEnvFiles(a.envFiles...); err != nil {
		return err
	}

	file, _ := cmd.Flags().GetString("config")
	var target any
	if a.options != nil {
		target = a.options
	}
	if err := newConfigLoader(a.name).load(file, cmd.Flags(), target); err != nil {
		return err
	}

	if a.options == nil {
		return nil
	}
	if err := a.options.Complete(); err != nil {
		return err
	}
	return a.options.Validate()
}

// Run 执行命令, 出错时以状态码 1 退出。
func (a *App) Run() {
	if err := a.cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Command returns the root cobra command.
func (a *App) Command() *cobra.Command {
	return a.cmd
}
