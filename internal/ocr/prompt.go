package ocr

import (
	"encoding/json"
	"strings"
)

func invoiceSchema() map[string]any {
	text := func(description string) map[string]any {
		return map[string]any{"type": "string", "description": description}
	}
	num := func(description string) map[string]any {
		return map[string]any{"type": "number", "description": description}
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date":             text("Invoice date as YYYY-MM-DD."),
			"number":           text("Invoice number exactly as printed."),
			"supplier":         text("Supplier (seller) company name without legal form quotes."),
			"contactInfo":      text("Supplier phone, email or address if printed."),
			"documentAmount":   num("Grand total of the invoice."),
			"documentQuantity": num("Total quantity of all items."),
			"comment":          text("Anything noteworthy that does not fit other fields."),
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"productCode":           text("Article or SKU of the product."),
						"productDescription":    text("Product name."),
						"productCharacteristic": text("Size, color or other variant, empty if none."),
						"quantity":              num("Quantity."),
						"price":                 num("Unit price."),
						"total":                 num("Line total."),
					},
					"required": []string{"productCode", "productDescription", "quantity", "price", "total"},
				},
			},
		},
		"required": []string{"date", "number", "supplier", "items"},
	}
}

// Prompt is sent with the first image of every extraction request.
func Prompt() string {
	schema, _ := json.MarshalIndent(invoiceSchema(), "", "  ")

	var b strings.Builder
	b.WriteString("You receive photos or scans of one supplier invoice. The pages are in order.\n")
	b.WriteString("Extract the invoice header and every product line from all pages.\n")
	b.WriteString("Answer with a single ```json fenced block and nothing else. The JSON must match this schema:\n")
	b.Write(schema)
	b.WriteString("\nUse numbers with a dot as decimal separator. Leave unknown strings empty and unknown numbers 0.\n")
	b.WriteString("Do not merge or reorder lines; repeat a line if it is printed twice.")
	return b.String()
}
