package auctionhouse

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nftbiennial/auctionhouse/common"
	"github.com/nftbiennial/auctionhouse/schema"
)

func (s *AuctionHouse) runAPI(port string) {
	r := s.engine
	r.Use(common.CORSMiddleware())
	if s.cfg.RateLimit > 0 {
		r.Use(common.LimiterMiddleware(s.cfg.RateLimit, "M", nil))
	}
	v1 := r.Group("/")
	{
		v1.POST("/auction", s.createAuction)
		v1.GET("/auctions", s.listAuctions)
		v1.GET("/auction/:id", s.getAuction)
		v1.GET("/auction/:id/bids", s.getBidHistory)
		v1.POST("/auction/:id/bid", s.submitBid)
		v1.POST("/auction/:id/cancel", s.cancelAuction)
		v1.POST("/auction/:id/settle", s.settleAuction)

		v1.GET("/statistics", s.getStatistics)

		v1.GET("/governance", s.getGovernance)
		v1.POST("/governance/moderator", s.addModerator)
		v1.POST("/governance/moderator/remove", s.removeModerator)
		v1.POST("/governance/fees", s.updatePlatformFees)
		v1.POST("/governance/pause", s.togglePause)
	}

	if err := r.Run(port); err != nil {
		panic(err)
	}
}

func (s *AuctionHouse) createAuction(c *gin.Context) {
	req := schema.ReqCreateAuction{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	id, err := s.CreateAuction(c.Request.Context(), req.Caller, req)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, schema.RespAuctionId{AuctionId: id})
}

func (s *AuctionHouse) listAuctions(c *gin.Context) {
	c.JSON(http.StatusOK, s.ListAuctions())
}

func (s *AuctionHouse) getAuction(c *gin.Context) {
	id, err := paramAuctionId(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	resp, err := s.GetAuction(id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *AuctionHouse) getBidHistory(c *gin.Context) {
	id, err := paramAuctionId(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	records, err := s.wdb.GetBidRecords(id)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *AuctionHouse) submitBid(c *gin.Context) {
	id, err := paramAuctionId(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	req := schema.ReqBid{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.Bid(c.Request.Context(), id, req.Bidder, req.Amount, time.Now().Unix()); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) cancelAuction(c *gin.Context) {
	id, err := paramAuctionId(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	req := schema.ReqCaller{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.CancelAuction(c.Request.Context(), id, req.Caller); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) settleAuction(c *gin.Context) {
	id, err := paramAuctionId(c)
	if err != nil {
		errorResponse(c, err)
		return
	}
	req := schema.ReqCaller{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.SettleAuction(c.Request.Context(), id, req.Caller); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) getStatistics(c *gin.Context) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -30)
	if q := c.Query("start"); q != "" {
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			errorResponse(c, err)
			return
		}
		start = t
	}
	if q := c.Query("end"); q != "" {
		t, err := time.Parse("2006-01-02", q)
		if err != nil {
			errorResponse(c, err)
			return
		}
		end = t
	}
	stats, err := s.wdb.GetDailyStatistics(start, end)
	if err != nil {
		errorResponse(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *AuctionHouse) getGovernance(c *gin.Context) {
	c.JSON(http.StatusOK, s.Governance())
}

func (s *AuctionHouse) addModerator(c *gin.Context) {
	req := schema.ReqModerator{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.AddModerator(req.Caller, req.Moderator); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) removeModerator(c *gin.Context) {
	req := schema.ReqModerator{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.RemoveModerator(req.Caller, req.Moderator); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) updatePlatformFees(c *gin.Context) {
	req := schema.ReqPlatformFees{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.UpdatePlatformFees(req.Caller, req.PlatformFees); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func (s *AuctionHouse) togglePause(c *gin.Context) {
	req := schema.ReqCaller{}
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, err)
		return
	}
	if err := s.TogglePause(req.Caller); err != nil {
		errorResponse(c, err)
		return
	}
	c.Status(http.StatusOK)
}

func paramAuctionId(c *gin.Context) (uint64, error) {
	return strconv.ParseUint(c.Param("id"), 10, 64)
}

func errorResponse(c *gin.Context, err error) {
	c.JSON(errStatus(err), schema.RespErr{Err: err.Error()})
}

func errStatus(err error) int {
	switch err {
	case schema.ErrUnknownAuction, schema.ErrNotExist:
		return http.StatusNotFound
	case schema.ErrInvalidCreator, schema.ErrNotModerator:
		return http.StatusForbidden
	case schema.ErrPaused:
		return http.StatusServiceUnavailable
	case schema.ErrSettling:
		return http.StatusConflict
	case schema.ErrCustodyRejected, schema.ErrPayoutFailed:
		return http.StatusBadGateway
	default:
		return http.StatusBadRequest
	}
}
