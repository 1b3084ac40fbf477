package ai

import (
	"fmt"
	"strings"
)

// 分类系统提示词：约束模型只能输出预置标签之一
const classifySystemPrompt = `You are an email triage assistant. Classify the email into exactly one of these labels:
%s

Respond with strict JSON in the form {"label": "<one of the labels above>"} and nothing else.`

// ClassifyMessages 构造邮件分类的对话消息
func ClassifyMessages(labelNames []string, subject, from, snippet string, attachments []string) []ChatMessage {
	var email strings.Builder
	email.WriteString("Subject: " + subject + "\n")
	email.WriteString("From: " + from + "\n")
	if len(attachments) > 0 {
		email.WriteString("Attachments: " + strings.Join(attachments, ", ") + "\n")
	}
	email.WriteString("Body:\n" + snippet)

	return []ChatMessage{
		{Role: "system", Content: fmt.Sprintf(classifySystemPrompt, "- "+strings.Join(labelNames, "\n- "))},
		{Role: "user", Content: email.String()},
	}
}

// ComposeMessages 构造撰写邮件的对话消息
func ComposeMessages(instruction, senderName string) []ChatMessage {
	system := "You are an email writing assistant. Write a complete, well-formatted email body based on the user's instruction. Output only the email body, no subject line, no commentary."
	if senderName != "" {
		system += " Sign the email as " + senderName + "."
	}
	return []ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: instruction},
	}
}

// ReplyMessages 构造回复邮件的对话消息
func ReplyMessages(instruction, subject, from, body string) []ChatMessage {
	var ctx strings.Builder
	ctx.WriteString("Original email:\n")
	ctx.WriteString("Subject: " + subject + "\n")
	ctx.WriteString("From: " + from + "\n")
	ctx.WriteString("Body:\n" + body + "\n\n")
	ctx.WriteString("Instruction: " + instruction)

	return []ChatMessage{
		{Role: "system", Content: "You are an email writing assistant. Write a reply to the email below following the user's instruction. Output only the reply body, no commentary."},
		{Role: "user", Content: ctx.String()},
	}
}

// SummaryMessages 构造邮件摘要的对话消息
func SummaryMessages(subject, from, body string) []ChatMessage {
	var ctx strings.Builder
	ctx.WriteString("Subject: " + subject + "\n")
	ctx.WriteString("From: " + from + "\n")
	ctx.WriteString("Body:\n" + body)

	return []ChatMessage{
		{Role: "system", Content: `You are an email summarization assistant. Summarize the email in 2-3 short sentences and extract any action items. Respond with strict JSON in the form {"summary": "<summary text>", "actionItems": ["<item>", ...]} and nothing else. Use an empty array when there are no action items.`},
		{Role: "user", Content: ctx.String()},
	}
}
