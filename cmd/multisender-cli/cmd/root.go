package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd 代表基础命令，没有子命令时直接调用
var rootCmd = &cobra.Command{
	Use:   "multisender-cli",
	Short: "批量转账命令行工具",
	Long: `一个用 Go 语言编写的批量转账辅助工具。
支持校验收款人 CSV、生成导入模板以及离线解析批次金额与费用。`,
}

// Execute 将所有子命令添加到根命令并设置标志
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
