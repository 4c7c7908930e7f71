package logger

import "github.com/ideamans/go-l10n"

func init() {
	l10n.Register("ja", l10n.LexiconMap{
		// Session level messages (info)
		"Capturing from %s at %dx%d":       "%s からキャプチャ中 (%dx%d)",
		"Requested %dx%d, using %dx%d":     "%dx%d が要求されましたが、%dx%d を使用します",
		"Recording started: %s":            "録画を開始しました: %s",
		"Recording saved to %s (%d video, %d audio samples)": "録画を %s に保存しました (映像 %d, 音声 %d サンプル)",
		"Recording %s for %s...":           "%s を %s 録画中...",
		"Recording %s until interrupted...": "中断されるまで %s を録画中...",
		"Interrupted, stopping recording...": "中断されました。録画を停止中...",
		"Summary written to %s":            "サマリーを %s に書き出しました",
		"Snapshots saved to %s":            "スナップショットを %s に保存しました",

		// Catalog component
		"Found %d video and %d audio devices": "映像デバイス %d 台、音声デバイス %d 台が見つかりました",
		"Codec %s unavailable: %s backend not found": "コーデック %s は利用できません: %s バックエンドが見つかりません",

		// Capture component
		"Session started: %s %dx%d @ %.2f fps": "セッション開始: %s %dx%d @ %.2f fps",
		"Audio: %s %d Hz, %d channels":     "音声: %s %d Hz, %d チャンネル",
		"Capturing %s: ffmpeg %v":          "%s をキャプチャ中: ffmpeg %v",
		"Grabber closed":                   "グラバーを閉じました",

		// Recorder component
		"Recorder initialized: %s %dx%d, audio %s": "レコーダー初期化: %s %dx%d, 音声 %s",
		"Job %s starts at %v":              "ジョブ %s は %v から開始します",
		"Closing encoders: %v":             "エンコーダーのクローズ: %v",
		"Finalize after failure: %v":       "失敗後のファイナライズ: %v",
		"Close after failure: %v":          "失敗後のクローズ: %v",

		// Warnings
		"Recorder queue full, dropped %d %s samples so far": "レコーダーのキューが一杯です。これまでに %d 個の %s サンプルを破棄しました",
		"Recording aborted: %v":            "録画を中止しました: %v",
		"Failed to list %s video devices: %v": "%s の映像デバイス一覧の取得に失敗しました: %v",
		"Failed to list %s audio devices: %v": "%s の音声デバイス一覧の取得に失敗しました: %v",
		"Failed to save snapshot %d: %v":   "スナップショット %d の保存に失敗しました: %v",
		"Failed to encode recording metadata: %v": "録画メタデータのエンコードに失敗しました: %v",
		"Failed to save recording metadata: %v": "録画メタデータの保存に失敗しました: %v",

		// Errors
		"Recording failed: %v":             "録画に失敗しました: %v",
		"Failed to write summary: %v":      "サマリーの書き出しに失敗しました: %v",
	})
}
