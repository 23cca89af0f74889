package cli

import (
	"github.com/spf13/cobra"
)

var testAlertDigest bool

var testAlertCmd = &cobra.Command{
	Use:   "test-alert",
	Short: "发送一条测试告警到所有已配置通道",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().TestAlert(cmd.Context(), testAlertDigest)
	},
}

func init() {
	testAlertCmd.Flags().BoolVar(&testAlertDigest, "digest", false, "发送测试摘要而不是速报")
}
