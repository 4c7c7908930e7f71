// Package main provides localization for the avgrabber CLI.
package main

import (
	"github.com/ideamans/go-l10n"
)

func init() {
	// Register Japanese translations for CLI messages.
	l10n.Register("ja", l10n.LexiconMap{
		// Devices command
		"Video devices": "映像デバイス",
		"Audio devices": "音声デバイス",
		"Video codecs":  "映像コーデック",
		"Audio codecs":  "音声コーデック",
		"(none)":        "（なし）",

		// Version command
		"avgrabber version %s": "avgrabber バージョン %s",

		// Summary content
		"Recording Summary": "録画サマリー",
		"Generated":         "生成日時",
		"Aborted":           "中止",
		"Results":           "実行結果",
		"Devices":           "デバイス",
		"Video Details":     "映像詳細",
		"Audio Details":     "音声詳細",
		"Item":              "項目",
		"Value":             "値",
		"None":              "なし",

		// Results section
		"File":      "ファイル",
		"Job ID":    "ジョブID",
		"Started":   "開始日時",
		"Duration":  "録画時間",
		"File Size": "ファイルサイズ",

		// Devices section
		"Video Device": "映像デバイス",
		"Audio Device": "音声デバイス",

		// Track sections
		"Codec":        "コーデック",
		"Frame Size":   "フレームサイズ",
		"Frame Rate":   "フレームレート",
		"Samples":      "サンプル数",
		"Dropped":      "破棄数",
		"Sample Rate":  "サンプルレート",
		"Channels":     "チャンネル数",
		"Late samples": "遅延サンプル数",
		"Generated by": "生成:",
	})
}
