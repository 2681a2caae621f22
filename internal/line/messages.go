package line

import "fmt"

// Categories offered by the category menu. The store itself accepts any
// string; this list only shapes the UI.
var Categories = []string{"午餐", "交通", "娛樂", "其他"}

// TextMessage builds a plain text message payload.
func TextMessage(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// MainMenu builds the flex bubble offering the top-level actions.
func MainMenu() map[string]any {
	return flexMessage("主選單", bubble("請選擇操作",
		button("記帳", "action=start_record"),
		button("刪除最新記錄", "action=delete_last"),
		button("清除所有記錄", "action=clear_all"),
		button("查詢紀錄", "action=query_records"),
		button("一鍵分帳", "action=settlement"),
	))
}

// CategoryMenu builds the flex bubble offering the expense categories.
func CategoryMenu() map[string]any {
	buttons := make([]map[string]any, 0, len(Categories))
	for _, category := range Categories {
		buttons = append(buttons, button(category, fmt.Sprintf("action=select_category&category=%s", category)))
	}
	return flexMessage("請選擇記帳分類", bubble("請選擇記帳分類", buttons...))
}

func flexMessage(altText string, contents map[string]any) map[string]any {
	return map[string]any{
		"type":     "flex",
		"altText":  altText,
		"contents": contents,
	}
}

func bubble(title string, buttons ...map[string]any) map[string]any {
	return map[string]any{
		"type": "bubble",
		"body": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []map[string]any{
				{"type": "text", "text": title, "weight": "bold", "size": "lg", "margin": "md"},
				{"type": "box", "layout": "vertical", "margin": "md", "contents": buttons},
			},
		},
	}
}

func button(label, data string) map[string]any {
	return map[string]any{
		"type":   "button",
		"style":  "primary",
		"margin": "md",
		"action": map[string]any{"type": "postback", "label": label, "data": data},
	}
}
