package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"multisender-core/internal/engine"
)

var (
	resolveMode     string
	resolveAmount   string
	resolveDecimals uint8
	resolveHeaders  bool
	resolveBps      uint32
)

// resolveCmd 代表 resolve 命令
var resolveCmd = &cobra.Command{
	Use:   "resolve <csv-file>",
	Short: "离线解析批次金额与费用",
	Long: `从 CSV 解析收款人并推导发送载荷: 每人金额、精确整数总额,
以及按费率估算的协议费。不会发起任何链上请求。`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		data, err := os.ReadFile(args[0])
		if err != nil {
			fmt.Printf("读取文件失败: %v\n", err)
			os.Exit(1)
		}

		mode := engine.Mode(resolveMode)
		custom := mode == engine.ModeCustom
		rows := engine.ParseRecipients(string(data), resolveHeaders, custom)

		batch := engine.ResolveBatch(mode, rows, resolveAmount, resolveDecimals)
		if batch.IsEmpty() {
			fmt.Println("批次为空: 没有可发送的收款人 (检查地址、金额与精度)")
			os.Exit(1)
		}

		quote := engine.EstimateFee(batch.Total, resolveBps)

		fmt.Printf("收款人: %d\n", len(batch.Recipients))
		for i, r := range batch.Recipients {
			fmt.Printf("  %s  %s\n", engine.FormatAddress(r.Hex()), engine.ToDecimalString(batch.Amounts[i], resolveDecimals))
		}
		fmt.Printf("总额:   %s (%s 最小单位)\n", engine.ToDecimalString(batch.Total, resolveDecimals), batch.Total.String())
		fmt.Printf("费用:   %s (%d bps)\n", engine.ToDecimalString(quote.Fee, resolveDecimals), quote.BasisPoints)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveMode, "mode", "custom", "分发模式: equal 或 custom")
	resolveCmd.Flags().StringVar(&resolveAmount, "amount", "", "等额模式下每人的金额")
	resolveCmd.Flags().Uint8Var(&resolveDecimals, "decimals", 18, "资产精度")
	resolveCmd.Flags().BoolVar(&resolveHeaders, "headers", true, "首行为表头")
	resolveCmd.Flags().Uint32Var(&resolveBps, "bps", 0, "协议费率 (基点)")
	rootCmd.AddCommand(resolveCmd)
}
