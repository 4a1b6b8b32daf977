package research

// MockResearch is returned when the OpenAI API is not configured.
const MockResearch = `# 模拟研究报告

## 引言
这是一个模拟的研究报告，用于在没有有效API密钥时展示应用程序的功能。

## 主要内容
- 第一点：这是模拟数据
- 第二点：请配置有效的OpenAI API密钥以获取真实内容
- 第三点：在.env文件中设置OPENAI_API_KEY

## 结论
这个应用程序需要有效的API密钥才能正常工作。`

const researchErrorSection = "\n\n## 错误信息\n调用OpenAI API时出错，请检查API密钥是否有效。"

// Mock concept image output.
const (
	MockKeywords = "人工智能, 深度学习, 机器学习, 数据分析, 技术创新"
	MockImageURL = "https://placehold.co/1024x1024/EEE/31343C?text=模拟图片&font=OpenSans"
)
