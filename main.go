package main

import (
	"os"
	"time"

	"dinq_match/cmd"
)

func init() {
	// 设置时区为 UTC（推荐服务端统一使用 UTC）
	time.Local = time.UTC
}

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
