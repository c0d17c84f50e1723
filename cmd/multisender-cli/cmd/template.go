package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"multisender-core/internal/engine"
)

var (
	templateCustom  bool
	templateHeaders bool
)

// templateCmd 代表 template 命令
var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "输出收款人 CSV 模板",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(engine.GenerateTemplate(templateCustom, templateHeaders))
	},
}

func init() {
	templateCmd.Flags().BoolVar(&templateCustom, "custom", false, "包含金额列")
	templateCmd.Flags().BoolVar(&templateHeaders, "headers", true, "包含表头")
	rootCmd.AddCommand(templateCmd)
}
