package core

import (
	"fmt"
	"strings"
)

// previewLimit bounds how much of each prior step's answer is replayed
// into the next step's context, counted in runes since the content is
// mostly CJK text.
const previewLimit = 1000

// stepSystemPrompt assembles the system turn for a step: topic framing,
// style requirements, and previews of everything already done.
func stepSystemPrompt(topic string, step StepSpec, previous []StepOutcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "你是一个专业的小红书内容创作专家，专门研究「%s」相关的最新发展。请根据任务背景、之前步骤的执行结果和当前步骤要求选择并调用相应的工具。\n", topic)
	fmt.Fprintf(&b, "【研究主题】\n核心主题: %s\n研究目标: 收集、分析并撰写关于「%s」的专业内容，最终发布到小红书平台\n\n", topic, topic)
	b.WriteString("【小红书文案要求】\n")
	b.WriteString("🎯 吸引力要素：\n")
	b.WriteString("- 使用引人注目的标题，包含热门话题标签和表情符号\n")
	b.WriteString("- 开头要有强烈的钩子，激发用户好奇心和共鸣\n")
	b.WriteString("- 内容要实用且有价值，让用户有收藏和分享的冲动\n")
	b.WriteString("- 语言要轻松活泼，贴近年轻用户的表达习惯\n")
	b.WriteString("- 结尾要有互动引导，如提问、征集意见等\n")
	b.WriteString("- 适当使用流行梗和网络用语，但保持专业度\n\n")
	fmt.Fprintf(&b, "【任务背景】\n目标: 深度研究%s并生成高质量的社交媒体内容\n", topic)
	b.WriteString("要求: 确保内容专业准确、提供3-4张真实可访问的图片、格式符合小红书发布标准，最好不要有水印，避免侵权的威胁\n\n")
	fmt.Fprintf(&b, "【当前步骤】\n步骤ID: %s\n步骤标题: %s\n", step.ID, step.Title)

	if len(previous) > 0 {
		b.WriteString("\n【前序步骤执行结果】\n")
		for _, r := range previous {
			if r.Response == "" {
				continue
			}
			fmt.Fprintf(&b, "▸ %s - %s：\n%s...\n\n", r.StepID, r.StepTitle, truncateRunes(r.Response, previewLimit))
		}
		b.WriteString("【执行指南】\n")
		b.WriteString("1. 仔细理解前序步骤已获得的信息和资源\n")
		b.WriteString("2. 基于已有结果，确定当前步骤需要调用的工具\n")
		b.WriteString("3. 充分利用前序步骤的数据，避免重复工作\n")
		b.WriteString("4. 如需多个工具协同，可同时调用\n")
		b.WriteString("5. 确保当前步骤输出能无缝衔接到下一步骤\n\n")
		b.WriteString("⚠️ 重要提示：\n")
		b.WriteString("- 如果前序步骤已提供足够信息，直接整合利用，不要重复检索\n")
		b.WriteString("- 如果是内容创作步骤，基于前面的素材直接撰写\n")
		b.WriteString("- 如果是发布步骤，直接提取格式化内容进行发布\n")
	} else {
		b.WriteString("\n【执行指南】\n")
		b.WriteString("1. 这是一个独立步骤，不依赖其他步骤结果\n")
		b.WriteString("2. 分析当前任务需求，选择合适的工具\n")
		b.WriteString("3. 为工具调用准备准确的参数\n")
		b.WriteString("4. 如需多个工具，可同时调用\n")
		b.WriteString("5. 完成所有要求的子任务\n\n")
		b.WriteString("⚠️ 执行要点：\n")
		b.WriteString("- 严格按照步骤描述执行\n")
		b.WriteString("- 确保工具调用参数准确\n")
		b.WriteString("- 收集的信息要完整且相关度高\n")
	}
	return b.String()
}

func truncateRunes(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
