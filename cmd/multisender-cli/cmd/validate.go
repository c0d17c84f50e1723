package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multisender-core/internal/engine"
)

var (
	validateCustom   bool
	validateHeaders  bool
	validateDecimals uint8
)

// validateCmd 代表 validate 命令
var validateCmd = &cobra.Command{
	Use:   "validate <csv-file>",
	Short: "校验收款人 CSV 文件",
	Long: `按导入规则校验整份 CSV。任何一行不合法, 整份文件都会被拒绝,
与服务端导入行为完全一致。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("读取文件失败: %v\n", err)
			os.Exit(1)
		}

		result := engine.ValidateImport(string(data), validateHeaders, validateCustom, validateDecimals)
		if result.IsValid {
			fmt.Printf("OK: %d 个收款人全部合法\n", len(result.Accepted))
			if dupes := engine.FindDuplicates(result.Accepted); len(dupes) > 0 {
				fmt.Println("注意: 存在重复地址 (允许发送, 但请确认是有意的):")
				for _, d := range dupes {
					fmt.Printf("  %s\n", d)
				}
			}
			return
		}

		fmt.Printf("拒绝: 共 %d 处错误\n", len(result.Errors))
		for _, e := range result.TopErrors(5) {
			fmt.Printf("  %s\n", e)
		}
		if len(result.Errors) > 5 {
			fmt.Printf("  ... 以及另外 %d 处\n", len(result.Errors)-5)
		}
		os.Exit(1)
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateCustom, "custom", false, "每行带独立金额列")
	validateCmd.Flags().BoolVar(&validateHeaders, "headers", true, "首行为表头")
	validateCmd.Flags().Uint8Var(&validateDecimals, "decimals", 18, "资产精度")
	rootCmd.AddCommand(validateCmd)
}
