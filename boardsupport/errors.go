// https://github.com/usbarmory/imxrt-usbd
//
// Copyright (c) The imxrt-usbd Authors. All Rights Reserved.
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package boardsupport

import "errors"

var errInvalidInstance = errors.New("boardsupport: invalid USB instance")
