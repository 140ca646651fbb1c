package pagination

type Pagination struct {
	PageSize int `form:"page_size,default=50" validate:"gte=1,lte=500"` // Min 1, Max 500
	Page     int `form:"page,default=1" validate:"gte=1"`
}

type PageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	HasMore    bool  `json:"has_more"`
}

func (p Pagination) Normalize() Pagination {
	out := p
	if out.PageSize < 1 {
		out.PageSize = 50
	}
	if out.PageSize > 500 {
		out.PageSize = 500
	}
	if out.Page < 1 {
		out.Page = 1
	}
	return out
}

func (p Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

func BuildPageInfo(p Pagination, total int64) PageInfo {
	return PageInfo{
		Page:       p.Page,
		PageSize:   p.PageSize,
		TotalCount: total,
		HasMore:    int64(p.Offset()+p.PageSize) < total,
	}
}
