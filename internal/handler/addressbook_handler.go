package handler

import (
	"github.com/gin-gonic/gin"

	"multisender-core/internal/handler/request"
	"multisender-core/internal/handler/response"
	"multisender-core/internal/service"
	"multisender-core/pkg/errno"
)

type AddressBookHandler struct {
	svc *service.AddressBookService
}

func NewAddressBookHandler(svc *service.AddressBookService) *AddressBookHandler {
	return &AddressBookHandler{svc: svc}
}

// Save 保存地址标签
// @Summary 保存地址
// @Description 同一地址重复保存时更新标签
// @Tags AddressBook
// @Accept json
// @Produce json
// @Param request body request.SaveAddressRequest true "Entry"
// @Success 200 {object} response.Response
// @Router /api/v1/addressbook [post]
func (h *AddressBookHandler) Save(c *gin.Context) {
	var req request.SaveAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errno.ErrBind)
		return
	}
	if err := h.svc.Save(c.Request.Context(), req.Address, req.Label); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

// List 地址簿列表
// @Summary 地址簿
// @Tags AddressBook
// @Produce json
// @Success 200 {object} response.Response
// @Router /api/v1/addressbook [get]
func (h *AddressBookHandler) List(c *gin.Context) {
	entries, err := h.svc.List(c.Request.Context())
	if err != nil {
		response.Error(c, errno.ErrDatabase)
		return
	}
	response.Success(c, gin.H{"entries": entries})
}

// Remove 删除地址
// @Summary 删除地址
// @Tags AddressBook
// @Produce json
// @Param address path string true "Address"
// @Success 200 {object} response.Response
// @Router /api/v1/addressbook/{address} [delete]
func (h *AddressBookHandler) Remove(c *gin.Context) {
	if err := h.svc.Remove(c.Request.Context(), c.Param("address")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
