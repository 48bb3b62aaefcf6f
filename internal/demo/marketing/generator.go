package marketing

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

const (
	TableCampaigns       = "marketing_campaigns"
	TableCustomerMetrics = "customer_metrics"
	TableAdPerformance   = "ad_performance"
)

// Dates are stored as days since the Unix epoch so parquet readers see the
// DATE logical type.
type Campaign struct {
	CampaignID   string  `parquet:"campaign_id"`
	CampaignName string  `parquet:"campaign_name"`
	StartDate    int32   `parquet:"start_date,date"`
	EndDate      int32   `parquet:"end_date,date"`
	Budget       float64 `parquet:"budget"`
	Spend        float64 `parquet:"spend"`
	Impressions  int64   `parquet:"impressions"`
	Clicks       int64   `parquet:"clicks"`
	Conversions  int64   `parquet:"conversions"`
	Revenue      float64 `parquet:"revenue"`
	CampaignType string  `parquet:"campaign_type"`
	Channel      string  `parquet:"channel"`
}

type CustomerMetric struct {
	Date               int32   `parquet:"date,date"`
	NewCustomers       int64   `parquet:"new_customers"`
	ReturningCustomers int64   `parquet:"returning_customers"`
	ChurnRate          float64 `parquet:"churn_rate"`
	LifetimeValue      float64 `parquet:"lifetime_value"`
	AcquisitionCost    float64 `parquet:"acquisition_cost"`
	RetentionRate      float64 `parquet:"retention_rate"`
}

type AdPerformance struct {
	AdID        string  `parquet:"ad_id"`
	CampaignID  string  `parquet:"campaign_id"`
	AdName      string  `parquet:"ad_name"`
	Date        int32   `parquet:"date,date"`
	Impressions int64   `parquet:"impressions"`
	Clicks      int64   `parquet:"clicks"`
	Cost        float64 `parquet:"cost"`
	Conversions int64   `parquet:"conversions"`
	Revenue     float64 `parquet:"revenue"`
}

type Dataset struct {
	Campaigns       []Campaign
	CustomerMetrics []CustomerMetric
	Ads             []AdPerformance
}

var (
	campaignTypes = []string{"awareness", "consideration", "conversion", "retention"}
	channels      = []string{"search", "social", "display", "email", "video"}
	themes        = []string{"Spring Sale", "Summer Launch", "Back to School", "Holiday Push", "Brand Lift", "Loyalty Boost", "New Market", "Clearance"}
	adFormats     = []string{"Banner", "Carousel", "Story", "Text"}
)

// Generator produces the sample marketing dataset. The same seed and options
// always yield the same rows.
type Generator struct {
	rnd            *rand.Rand
	start          time.Time
	days           int
	campaigns      int
	adsPerCampaign int
}

func NewGenerator(seed int64, start time.Time, days, campaigns, adsPerCampaign int) *Generator {
	return &Generator{
		rnd:            rand.New(rand.NewSource(seed)),
		start:          truncateDay(start),
		days:           days,
		campaigns:      campaigns,
		adsPerCampaign: adsPerCampaign,
	}
}

func (g *Generator) Generate() Dataset {
	dataset := Dataset{}
	for i := 0; i < g.campaigns; i++ {
		campaign, ads := g.campaign(i + 1)
		dataset.Campaigns = append(dataset.Campaigns, campaign)
		dataset.Ads = append(dataset.Ads, ads...)
	}
	for day := 0; day < g.days; day++ {
		dataset.CustomerMetrics = append(dataset.CustomerMetrics, g.customerMetric(g.start.AddDate(0, 0, day)))
	}
	return dataset
}

func (g *Generator) campaign(index int) (Campaign, []AdPerformance) {
	campaignID := fmt.Sprintf("cmp-%04d", index)
	startOffset := g.rnd.Intn(max(g.days/2, 1))
	length := 14 + g.rnd.Intn(max(g.days/2, 1))
	start := g.start.AddDate(0, 0, startOffset)
	end := start.AddDate(0, 0, length-1)
	if last := g.start.AddDate(0, 0, g.days-1); end.After(last) {
		end = last
	}
	activeDays := int(end.Sub(start).Hours()/24) + 1

	channel := pickOne(g.rnd, channels)
	ctr := 0.005 + g.rnd.Float64()*0.045
	cvr := 0.01 + g.rnd.Float64()*0.09
	cpm := 2 + g.rnd.Float64()*18
	orderValue := 25 + g.rnd.Float64()*175

	campaign := Campaign{
		CampaignID:   campaignID,
		CampaignName: fmt.Sprintf("%s %d", pickOne(g.rnd, themes), index),
		StartDate:    epochDays(start),
		EndDate:      epochDays(end),
		CampaignType: pickOne(g.rnd, campaignTypes),
		Channel:      channel,
	}

	ads := make([]AdPerformance, 0, g.adsPerCampaign*activeDays)
	for adIndex := 1; adIndex <= g.adsPerCampaign; adIndex++ {
		adID := fmt.Sprintf("%s-ad-%02d", campaignID, adIndex)
		adName := fmt.Sprintf("%s %s %d", channel, pickOne(g.rnd, adFormats), adIndex)
		for day := 0; day < activeDays; day++ {
			impressions := int64(500 + g.rnd.Intn(20000))
			clicks := int64(math.Round(float64(impressions) * ctr * (0.7 + g.rnd.Float64()*0.6)))
			conversions := int64(math.Round(float64(clicks) * cvr * (0.7 + g.rnd.Float64()*0.6)))
			cost := round2(float64(impressions) / 1000 * cpm)
			revenue := round2(float64(conversions) * orderValue * (0.8 + g.rnd.Float64()*0.4))
			ads = append(ads, AdPerformance{
				AdID:        adID,
				CampaignID:  campaignID,
				AdName:      adName,
				Date:        epochDays(start.AddDate(0, 0, day)),
				Impressions: impressions,
				Clicks:      clicks,
				Cost:        cost,
				Conversions: conversions,
				Revenue:     revenue,
			})

			campaign.Impressions += impressions
			campaign.Clicks += clicks
			campaign.Conversions += conversions
			campaign.Spend += cost
			campaign.Revenue += revenue
		}
	}
	campaign.Spend = round2(campaign.Spend)
	campaign.Revenue = round2(campaign.Revenue)
	campaign.Budget = round2(campaign.Spend * (1 + g.rnd.Float64()*0.3))
	return campaign, ads
}

func (g *Generator) customerMetric(day time.Time) CustomerMetric {
	season := 1 + 0.25*math.Sin(2*math.Pi*float64(day.YearDay())/365)
	churn := 0.01 + g.rnd.Float64()*0.04
	return CustomerMetric{
		Date:               epochDays(day),
		NewCustomers:       int64(float64(40+g.rnd.Intn(160)) * season),
		ReturningCustomers: int64(float64(120+g.rnd.Intn(400)) * season),
		ChurnRate:          round4(churn),
		LifetimeValue:      round2(150 + g.rnd.Float64()*650),
		AcquisitionCost:    round2(15 + g.rnd.Float64()*85),
		RetentionRate:      round4(1 - churn - g.rnd.Float64()*0.1),
	}
}

func epochDays(t time.Time) int32 {
	return int32(truncateDay(t).Unix() / 86400)
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

func round4(value float64) float64 {
	return math.Round(value*10000) / 10000
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
