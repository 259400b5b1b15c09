package models

// Dashboard API request bindings.

type PricesRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=5000"`
}

type NewsRequest struct {
	Currency string `query:"currency" json:"currency" validate:"required"`
	Limit    int    `query:"limit" json:"limit" default:"100" validate:"gte=1,lte=1000"`
}

type KnowledgeRequest struct {
	Symbol   string `query:"symbol" json:"symbol" validate:"required"`
	DataType string `query:"data_type" json:"data_type" validate:"omitempty,oneof=price technical news"`
	From     string `query:"from" json:"from"`
	To       string `query:"to" json:"to"`
	Limit    int    `query:"limit" json:"limit" default:"200" validate:"gte=1,lte=5000"`
}

type ModelsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
}

type PredictionsRequest struct {
	Symbol string `query:"symbol" json:"symbol" validate:"required"`
	Limit  int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}
