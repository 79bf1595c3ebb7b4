package requestresponse

// CreateWatchRequest : тело запроса на создание watch
type CreateWatchRequest struct {
	Origin         string `json:"origin" example:"LED"`
	Destination    string `json:"destination" example:"AER"`
	DepartDate     string `json:"depart_date" example:"2026-10-01"`
	ThresholdCents int64  `json:"threshold_cents" example:"1250000"`
	Currency       string `json:"currency" example:"RUB"`
}

// CreateWatchResponse : ответ на создание watch.
// PutURL : pre-signed ссылка для выгрузки истории цен в хранилище.
type CreateWatchResponse struct {
	Response struct {
		WatchUUID string `json:"watch_uuid" example:"qwdj1q4o34u34ih759ou1"`
		PutURL    string `json:"put_url,omitempty"`
	} `json:"response"`
}

// WatchListResponse : список watch пользователя
type WatchListResponse struct {
	Response []WatchItem `json:"response"`
}

// WatchItem : элемент списка watch
type WatchItem struct {
	WatchUUID      string `json:"watch_uuid"`
	Origin         string `json:"origin"`
	Destination    string `json:"destination"`
	DepartDate     string `json:"depart_date"`
	ThresholdCents int64  `json:"threshold_cents"`
	Currency       string `json:"currency"`
}

// DeleteWatchResponse : ответ на удаление watch
type DeleteWatchResponse struct {
	Response struct {
		WatchUUID string `json:"watch_uuid"`
		Deleted   bool   `json:"deleted" example:"true"`
	} `json:"response"`
}
