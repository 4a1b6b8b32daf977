package helpers

// Canned workflow answers shared by the integration tests.
const (
	DefaultBlockingBody = `{
		"task_id": "c3800678-a077-43df-a102-53f23ed20b88",
		"workflow_run_id": "dfjasklfjdslag",
		"data": {
			"id": "fdlsjfjejkghjda",
			"workflow_id": "fldjaslkfjlsda",
			"status": "succeeded",
			"outputs": {"output": "<h1>配送机器人</h1>\n\n\n\n## 市场分析\n城市末端配送需求持续增长"},
			"elapsed_time": 0.875,
			"total_tokens": 3562
		}
	}`

	// DefaultBlockingAnswer is DefaultBlockingBody after extraction and cleanup.
	DefaultBlockingAnswer = "配送机器人\n## 市场分析\n城市末端配送需求持续增长"

	NotPublishedBody = `{"code":"workflow_not_published","message":"Workflow not published","status":400}`
	ServerErrorBody  = `{"code":"internal_server_error","message":"upstream exploded","status":500}`
)

// DefaultFrames is a streamed answer split across a multi-byte boundary.
var DefaultFrames = []string{
	`{"event":"workflow_started","task_id":"t-1"}`,
	`{"answer":"城市配送"}`,
	`{"answer":"机器人研究"}`,
	`[DONE]`,
}

// DefaultStreamAnswer is the text carried by DefaultFrames.
const DefaultStreamAnswer = "城市配送机器人研究"

// DefaultInputs satisfies the workflow's required inputs.
func DefaultInputs() map[string]string {
	return map[string]string{
		"title":        "自主巡航配送机器人设计研究",
		"topic":        "自主巡航配送机器人设计",
		"requirements": "城市环境中的自主配送机器人",
	}
}
